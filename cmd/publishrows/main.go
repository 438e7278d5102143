// Command publishrows reads the crime and conflict CSV tables and produces one
// message per row to the Kafka source topic, so the service can be run with
// INCIDENT_SOURCE=kafka against real data. Defaults come from the same
// environment variables the service reads.
//
// Usage:
//
//	go run ./cmd/publishrows \
//	  -crime data/Crime-Report-RSO.csv \
//	  -conflict data/Conflict-Incident-RSO.csv \
//	  -topic raw-incident-rows
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/security-risk-etl/internal/adapter/csvfile"
	kafkaadapter "github.com/couchcryptid/security-risk-etl/internal/adapter/kafka"
	"github.com/couchcryptid/security-risk-etl/internal/config"
	"github.com/couchcryptid/security-risk-etl/internal/domain"
)

const batchSize = 500

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	crime := flag.String("crime", cfg.CrimeCSVPath, "path to the crime report CSV")
	conflict := flag.String("conflict", cfg.ConflictCSVPath, "path to the conflict incident CSV")
	brokers := flag.String("brokers", sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092"), "comma-separated Kafka brokers")
	topic := flag.String("topic", cfg.KafkaSourceTopic, "destination topic")
	flag.Parse()

	if *crime == "" && *conflict == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -crime or -conflict")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := csvfile.NewExtractor([]csvfile.Source{
		{Category: domain.CategoryCrime, Path: *crime},
		{Category: domain.CategoryConflict, Path: *conflict},
	}, logger)
	defer source.Close()

	writer := kafkaadapter.NewRowWriter(sharedcfg.ParseBrokers(*brokers), *topic, logger)
	defer writer.Close()

	counts := make(map[domain.Category]int)
	for {
		rows, err := source.ExtractBatch(ctx, batchSize)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			break
		}
		if err := writer.PublishRows(ctx, rows); err != nil {
			return err
		}
		for _, r := range rows {
			counts[r.Category]++
		}
	}

	fmt.Printf("Published %d crime and %d conflict rows to %s\n",
		counts[domain.CategoryCrime], counts[domain.CategoryConflict], *topic)
	return nil
}
