package domain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidIncident marks an Incident that violates the contract the
// aggregator and scorer rely on.
var ErrInvalidIncident = errors.New("invalid incident")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func incidentValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateIncident checks the fields the engine depends on: identity, a known
// category, an event type, a timestamp, coordinates in range and non-negative
// casualty counts.
func ValidateIncident(inc Incident) error {
	if inc.Timestamp.IsZero() {
		return fmt.Errorf("%w %q: missing timestamp", ErrInvalidIncident, inc.ID)
	}
	if err := incidentValidator().Struct(inc); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidIncident, inc.ID, err)
	}
	return nil
}
