package timeseries

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windrose/meteoreg/internal/catalog"
	"github.com/windrose/meteoreg/internal/errors"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()
	reg, err := catalog.NewRegistry(catalog.NewNamespace(), "", []catalog.Metric{
		catalog.New("temperature", "C", false),
		catalog.New("rain fall", "C", true),
	})
	require.NoError(t, err)
	return NewSchema(reg)
}

func TestSchema_FilterKeepsAllowedRows(t *testing.T) {
	schema := testSchema(t)
	t1 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	series := Series{
		{Metric: "TEMPERATURE", Timestamp: t1, Value: 1.0},
		{Metric: "RAIN_FALL", Timestamp: t2, Value: 1.0},
	}

	filtered, err := schema.Filter(series, []string{"TEMPERATURE"})
	require.NoError(t, err)

	require.Len(t, filtered, 1)
	assert.Equal(t, Row{Metric: "TEMPERATURE", Timestamp: t1, Value: 1.0}, filtered[0])
}

func TestSchema_FilterAllowListIsCaseInsensitive(t *testing.T) {
	schema := testSchema(t)
	now := time.Now()

	series := Series{
		{Metric: "TEMPERATURE", Timestamp: now, Value: 21.5},
	}

	filtered, err := schema.Filter(series, []string{"temperature"})
	require.NoError(t, err)
	assert.Len(t, filtered, 1)
}

func TestSchema_FilterPreservesRowOrder(t *testing.T) {
	schema := testSchema(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	series := Series{
		{Metric: "RAIN_FALL", Timestamp: base, Value: 0.2},
		{Metric: "TEMPERATURE", Timestamp: base.Add(time.Hour), Value: 18.0},
		{Metric: "RAIN_FALL", Timestamp: base.Add(2 * time.Hour), Value: 0.5},
	}

	filtered, err := schema.Filter(series, []string{"RAIN_FALL"})
	require.NoError(t, err)

	require.Len(t, filtered, 2)
	assert.Equal(t, 0.2, filtered[0].Value)
	assert.Equal(t, 0.5, filtered[1].Value)
}

func TestSchema_FilterEmptyResult(t *testing.T) {
	schema := testSchema(t)

	series := Series{
		{Metric: "TEMPERATURE", Timestamp: time.Now(), Value: 1.0},
	}

	filtered, err := schema.Filter(series, []string{"RAIN_FALL"})
	require.NoError(t, err)
	assert.Empty(t, filtered)
}

func TestSchema_MisspelledMetricFailsBeforeFiltering(t *testing.T) {
	schema := testSchema(t)
	now := time.Now()

	// RAINFALL is not RAIN_FALL; the valid TEMPERATURE row must not rescue
	// the input.
	series := Series{
		{Metric: "TEMPERATURE", Timestamp: now, Value: 1.0},
		{Metric: "RAINFALL", Timestamp: now, Value: 1.0},
	}

	filtered, err := schema.Filter(series, []string{"TEMPERATURE"})
	require.Error(t, err)
	assert.Nil(t, filtered)
	assert.True(t, errors.IsSchemaViolation(err))

	var schemaErr *errors.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Len(t, schemaErr.Violations, 1)
	assert.Equal(t, 1, schemaErr.Violations[0].Row)
	assert.Equal(t, "metrics", schemaErr.Violations[0].Column)
	assert.Equal(t, "RAINFALL", schemaErr.Violations[0].Value)
}

func TestSchema_ValidateCollectsAllViolations(t *testing.T) {
	schema := testSchema(t)
	now := time.Now()

	series := Series{
		{Metric: "HUMIDITY", Timestamp: now, Value: 1.0},
		{Metric: "TEMPERATURE", Value: 1.0},
		{Metric: "TEMPERATURE", Timestamp: now, Value: math.NaN()},
	}

	err := schema.Validate(series)
	require.Error(t, err)

	var schemaErr *errors.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Len(t, schemaErr.Violations, 3)

	columns := make([]string, 0, len(schemaErr.Violations))
	for _, v := range schemaErr.Violations {
		columns = append(columns, v.Column)
	}
	assert.ElementsMatch(t, []string{"metrics", "timestamp", "value"}, columns)
}

func TestSchema_ValidateMissingMetricName(t *testing.T) {
	schema := testSchema(t)

	err := schema.Validate(Series{{Timestamp: time.Now(), Value: 1.0}})
	require.Error(t, err)

	var schemaErr *errors.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Len(t, schemaErr.Violations, 1)
	assert.Equal(t, "metrics", schemaErr.Violations[0].Column)
	assert.Equal(t, 0, schemaErr.Violations[0].Row)
}

func TestSchema_ValidateEmptySeries(t *testing.T) {
	schema := testSchema(t)
	assert.NoError(t, schema.Validate(Series{}))
	assert.NoError(t, schema.Validate(nil))
}

func TestSchema_BoundToItsOwnRegistry(t *testing.T) {
	ns := catalog.NewNamespace()
	main, err := catalog.NewRegistry(ns, "", []catalog.Metric{
		catalog.New("temperature", "C", false),
	})
	require.NoError(t, err)
	other, err := catalog.NewRegistry(ns, "Other", []catalog.Metric{
		catalog.New("humidity", "%", false),
	})
	require.NoError(t, err)

	series := Series{{Metric: "HUMIDITY", Timestamp: time.Now(), Value: 40}}

	// Valid against the registry that knows HUMIDITY, a violation against
	// the one that does not.
	assert.NoError(t, NewSchema(other).Validate(series))
	assert.Error(t, NewSchema(main).Validate(series))
}
