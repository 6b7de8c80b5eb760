package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/windrose/meteoreg/internal/catalog"
	"github.com/windrose/meteoreg/internal/errors"
	"github.com/windrose/meteoreg/internal/telemetry"
)

// MetricResponse is the API representation of a single metric, combining its
// definition with the derived identity fields.
type MetricResponse struct {
	FullName    string             `json:"full_name"`
	TableColumn string             `json:"table_column"`
	Definition  catalog.Definition `json:"definition"`
}

// NameSetResponse describes the closed set of valid full names of one
// registry.
type NameSetResponse struct {
	Name    string   `json:"name"`
	Prefix  string   `json:"prefix"`
	Members []string `json:"members"`
}

// CatalogHandler serves the metric registries.
type CatalogHandler struct {
	catalog   *catalog.Catalog
	telemetry *telemetry.Telemetry
	logger    *slog.Logger
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(cat *catalog.Catalog, tel *telemetry.Telemetry, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog:   cat,
		telemetry: tel,
		logger:    logger.With("handler", "catalog"),
	}
}

func metricResponse(m catalog.Metric) MetricResponse {
	return MetricResponse{
		FullName:    m.FullName(),
		TableColumn: m.TableColumn(),
		Definition:  m.Definition(),
	}
}

func metricResponses(reg *catalog.Registry) []MetricResponse {
	out := make([]MetricResponse, 0, reg.Len())
	for _, m := range reg.Metrics() {
		out = append(out, metricResponse(m))
	}
	return out
}

func nameSetResponse(reg *catalog.Registry) NameSetResponse {
	names := reg.NameSet()
	return NameSetResponse{
		Name:    names.Name(),
		Prefix:  names.Prefix(),
		Members: names.Names(),
	}
}

// ListMetrics handles GET /metrics.
func (h *CatalogHandler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	h.recordLookup("main", "ok")
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"metrics": metricResponses(h.catalog.Main),
		"total":   h.catalog.Main.Len(),
	})
}

// ListMetricNames handles GET /metrics/names.
func (h *CatalogHandler) ListMetricNames(w http.ResponseWriter, r *http.Request) {
	h.recordLookup("main", "ok")
	writeJSON(w, r, http.StatusOK, nameSetResponse(h.catalog.Main))
}

// GetMetric handles GET /metrics/{name}. The lookup spans the main and
// aggregated registries, so both TEMPERATURE and TEMPERATURE_MIN resolve.
func (h *CatalogHandler) GetMetric(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	m, err := h.catalog.Main.Get(name)
	if err != nil {
		m, err = h.catalog.Aggregated.Get(name)
	}
	if err != nil {
		h.recordLookup("main", "miss")
		handleError(w, r, errors.ErrMetricNotFound(name), h.logger)
		return
	}

	h.recordLookup("main", "ok")
	writeJSON(w, r, http.StatusOK, metricResponse(m))
}

// ListAggregatedMetrics handles GET /aggregated/metrics.
func (h *CatalogHandler) ListAggregatedMetrics(w http.ResponseWriter, r *http.Request) {
	h.recordLookup("aggregated", "ok")
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"metrics": metricResponses(h.catalog.Aggregated),
		"total":   h.catalog.Aggregated.Len(),
	})
}

// ListAggregatedMetricNames handles GET /aggregated/metrics/names.
func (h *CatalogHandler) ListAggregatedMetricNames(w http.ResponseWriter, r *http.Request) {
	h.recordLookup("aggregated", "ok")
	writeJSON(w, r, http.StatusOK, nameSetResponse(h.catalog.Aggregated))
}

func (h *CatalogHandler) recordLookup(registry, status string) {
	if h.telemetry != nil {
		h.telemetry.IncrementCatalogLookups(registry, status)
	}
}
