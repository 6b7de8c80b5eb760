package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windrose/meteoreg/internal/errors"
	"github.com/windrose/meteoreg/internal/logging"
	"github.com/windrose/meteoreg/internal/store"
	"github.com/windrose/meteoreg/internal/timeseries"
)

type fakeLister struct {
	series timeseries.Series
	err    error

	calls    int
	lastOpts store.ListOptions
}

func (f *fakeLister) List(_ context.Context, opts store.ListOptions) (timeseries.Series, error) {
	f.calls++
	f.lastOpts = opts
	return f.series, f.err
}

func sampleSeries() timeseries.Series {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return timeseries.Series{
		{Metric: "TEMPERATURE", Timestamp: at, Value: 21.5},
		{Metric: "RAIN_FALL", Timestamp: at, Value: 3.2},
		{Metric: "TEMPERATURE", Timestamp: at.Add(time.Hour), Value: 22.1},
	}
}

func TestQueryHandler_Readings(t *testing.T) {
	cat := testCatalog(t)
	lister := &fakeLister{series: sampleSeries()}
	h := NewQueryHandler(cat.Main, nil, lister, nil, logging.NewDefault().Logger)

	rec := httptest.NewRecorder()
	h.Readings(rec, httptest.NewRequest(http.MethodGet, "/query?metrics=TEMPERATURE", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Response, 2)
	for _, row := range body.Response {
		assert.Equal(t, "TEMPERATURE", row.Metric)
	}
}

func TestQueryHandler_ReadingsDefaultsToAllMetrics(t *testing.T) {
	cat := testCatalog(t)
	lister := &fakeLister{series: sampleSeries()}
	h := NewQueryHandler(cat.Main, nil, lister, nil, logging.NewDefault().Logger)

	rec := httptest.NewRecorder()
	h.Readings(rec, httptest.NewRequest(http.MethodGet, "/query", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Total)
}

func TestQueryHandler_ReadingsRejectsUnknownMetric(t *testing.T) {
	cat := testCatalog(t)
	lister := &fakeLister{series: sampleSeries()}
	h := NewQueryHandler(cat.Main, nil, lister, nil, logging.NewDefault().Logger)

	rec := httptest.NewRecorder()
	h.Readings(rec, httptest.NewRequest(http.MethodGet, "/query?metrics=HUMIDITY", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, lister.calls, "store must not be queried for names outside the set")

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errors.CodeMetricNotFound, body.Code)
}

func TestQueryHandler_ReadingsRejectsCorruptTable(t *testing.T) {
	cat := testCatalog(t)
	series := sampleSeries()
	series[1].Metric = "RAINFALL" // not a member of the registry
	lister := &fakeLister{series: series}
	h := NewQueryHandler(cat.Main, nil, lister, nil, logging.NewDefault().Logger)

	rec := httptest.NewRecorder()
	h.Readings(rec, httptest.NewRequest(http.MethodGet, "/query?metrics=TEMPERATURE", nil))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errors.CodeSchemaValidation, body.Code)
	require.Len(t, body.Violations, 1)
	assert.Equal(t, 1, body.Violations[0].Row)
	assert.Equal(t, "metrics", body.Violations[0].Column)
}

func TestQueryHandler_ReadingsParsesSinceAndLimit(t *testing.T) {
	cat := testCatalog(t)
	lister := &fakeLister{}
	h := NewQueryHandler(cat.Main, nil, lister, nil, logging.NewDefault().Logger)

	rec := httptest.NewRecorder()
	h.Readings(rec, httptest.NewRequest(http.MethodGet,
		"/query?since=2024-03-01T00:00:00Z&limit=50", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, lister.calls)
	assert.Equal(t, 50, lister.lastOpts.Limit)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), lister.lastOpts.Since)
	assert.Empty(t, lister.lastOpts.Metrics, "filtering happens after whole-table validation")
}

func TestQueryHandler_ReadingsRejectsBadParams(t *testing.T) {
	cat := testCatalog(t)
	h := NewQueryHandler(cat.Main, nil, &fakeLister{}, nil, logging.NewDefault().Logger)

	tests := []struct {
		name string
		url  string
	}{
		{name: "bad since", url: "/query?since=yesterday"},
		{name: "bad limit", url: "/query?limit=lots"},
		{name: "negative limit", url: "/query?limit=-1"},
		{name: "oversized limit", url: "/query?limit=99999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Readings(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestQueryHandler_PartialReadings(t *testing.T) {
	cat := testCatalog(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	lister := &fakeLister{series: timeseries.Series{
		{Metric: "TEMPERATURE_MIN", Timestamp: at, Value: 14.0},
		{Metric: "TEMPERATURE_MEAN", Timestamp: at, Value: 19.5},
		{Metric: "TEMPERATURE_MAX", Timestamp: at, Value: 25.0},
	}}
	h := NewQueryHandler(cat.Aggregated, cat.Partial.Names(), lister, nil, logging.NewDefault().Logger)

	rec := httptest.NewRecorder()
	h.PartialReadings(rec, httptest.NewRequest(http.MethodGet, "/aggregated/query", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Response, 2)
	assert.Equal(t, "TEMPERATURE_MIN", body.Response[0].Metric)
	assert.Equal(t, "TEMPERATURE_MAX", body.Response[1].Metric)
}

func TestQueryHandler_StoreErrorSurfacesSanitized(t *testing.T) {
	cat := testCatalog(t)
	lister := &fakeLister{err: errors.ErrDatabaseConnection(assert.AnError)}
	h := NewQueryHandler(cat.Main, nil, lister, nil, logging.NewDefault().Logger)

	rec := httptest.NewRecorder()
	h.Readings(rec, httptest.NewRequest(http.MethodGet, "/query", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errors.CodeDatabaseConnection, body.Code)
}
