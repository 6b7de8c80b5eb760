package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	tel := New()
	require.NotNil(t, tel.Registry())

	// Registering the same telemetry twice on one registry would panic;
	// a fresh instance must always come up clean.
	assert.NotPanics(t, func() { New() })
}

func TestCounters(t *testing.T) {
	tel := New()

	tel.IncrementHTTPRequests(http.MethodGet, "/api/v1/metrics", "200")
	tel.IncrementHTTPRequests(http.MethodGet, "/api/v1/metrics", "200")
	tel.RecordHTTPDuration(http.MethodGet, "/api/v1/metrics", 5*time.Millisecond)
	tel.IncrementCatalogLookups("main", "ok")
	tel.IncrementFilterRows("kept", 3)
	tel.IncrementFilterRows("dropped", 1)
	tel.IncrementSchemaViolations()

	assert.Equal(t, float64(2),
		testutil.ToFloat64(tel.httpRequests.WithLabelValues(http.MethodGet, "/api/v1/metrics", "200")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(tel.catalogLookups.WithLabelValues("main", "ok")))
	assert.Equal(t, float64(3),
		testutil.ToFloat64(tel.filterRows.WithLabelValues("kept")))
	assert.Equal(t, float64(1), testutil.ToFloat64(tel.schemaViolations))
}

func TestHandler_ServesMetrics(t *testing.T) {
	tel := New()
	tel.IncrementStoreQueries("list_readings", "ok")

	rec := httptest.NewRecorder()
	tel.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics-prometheus", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "meteoreg_store_queries_total")
}
