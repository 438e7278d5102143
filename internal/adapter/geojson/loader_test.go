package geojson

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/security-risk-etl/internal/domain"
)

const testCollection = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"shapeName": "Adama", "shapeID": "ETH-ADM3-1", "shapeGroup": "ETH"},
      "geometry": {"type": "Polygon", "coordinates": [[[39,8],[40,8],[40,9],[39,9],[39,8]]]}
    },
    {
      "type": "Feature",
      "properties": {"shapeName": "Orphan"},
      "geometry": null
    },
    {
      "type": "Feature",
      "properties": {"shapeName": "Bole", "shapeID": "ETH-ADM3-2"},
      "geometry": {"type": "Polygon", "coordinates": [[[38.7,8.9],[38.9,8.9],[38.9,9.1],[38.7,9.1],[38.7,8.9]]]}
    }
  ]
}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecode(t *testing.T) {
	boundaries, skipped, err := Decode([]byte(testCollection))
	require.NoError(t, err)

	assert.Equal(t, 1, skipped)
	require.Len(t, boundaries, 2)
	assert.Equal(t, "ETH-ADM3-1", boundaries[0].ShapeID)
	assert.Equal(t, "Adama", boundaries[0].ShapeName)
	assert.Equal(t, "ETH-ADM3-2", boundaries[1].ShapeID)

	poly, ok := boundaries[0].Geometry.(orb.Polygon)
	require.True(t, ok)
	assert.Equal(t, orb.Point{39, 8}, poly[0][0])
}

func TestDecode_MatchesIncidents(t *testing.T) {
	boundaries, _, err := Decode([]byte(testCollection))
	require.NoError(t, err)

	b, ok := domain.BoundarySet(boundaries).FindContainingBoundary(orb.Point{39.27, 8.54})
	require.True(t, ok)
	assert.Equal(t, "Adama", b.ShapeName)

	_, ok = domain.BoundarySet(boundaries).FindContainingBoundary(orb.Point{37.4, 11.6})
	assert.False(t, ok)
}

func TestDecode_MissingProperties(t *testing.T) {
	data := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[1,2]}}]}`

	boundaries, _, err := Decode([]byte(data))
	require.NoError(t, err)
	require.Len(t, boundaries, 1)
	assert.Empty(t, boundaries[0].ShapeID)
	assert.Empty(t, boundaries[0].ShapeName)
}

func TestDecode_Invalid(t *testing.T) {
	_, _, err := Decode([]byte("not json"))
	require.Error(t, err)
}

func TestBound(t *testing.T) {
	boundaries, _, err := Decode([]byte(testCollection))
	require.NoError(t, err)

	b := Bound(boundaries)
	assert.Equal(t, orb.Point{38.7, 8}, b.Min)
	assert.Equal(t, orb.Point{40, 9.1}, b.Max)
	assert.Equal(t, orb.Bound{}, Bound(nil))
}

func TestLoader_LoadBoundaries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adm3.geojson")
	require.NoError(t, os.WriteFile(path, []byte(testCollection), 0o600))

	boundaries, err := NewLoader(path, discardLogger()).LoadBoundaries(context.Background())
	require.NoError(t, err)
	assert.Len(t, boundaries, 2)
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "missing.geojson"), discardLogger()).LoadBoundaries(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader("unused", discardLogger()).LoadBoundaries(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
