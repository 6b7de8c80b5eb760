package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/windrose/meteoreg/internal/catalog"
	"github.com/windrose/meteoreg/internal/errors"
	"github.com/windrose/meteoreg/internal/store"
	"github.com/windrose/meteoreg/internal/telemetry"
	"github.com/windrose/meteoreg/internal/timeseries"
)

const maxQueryLimit = 10000

// ReadingLister is the slice of the readings store the query handler needs.
type ReadingLister interface {
	List(ctx context.Context, opts store.ListOptions) (timeseries.Series, error)
}

// QueryResponse wraps filtered readings.
type QueryResponse struct {
	Response timeseries.Series `json:"response"`
	Total    int               `json:"total"`
}

// QueryHandler serves schema-gated time-series queries. Every query loads
// the stored readings, validates the whole table against the registry's
// schema, and only then applies the requested allow-list.
type QueryHandler struct {
	registry  *catalog.Registry
	schema    *timeseries.Schema
	partial   []string
	readings  ReadingLister
	telemetry *telemetry.Telemetry
	logger    *slog.Logger
}

// NewQueryHandler creates a query handler over the given registry. The
// partial names, when non-empty, are the default allow-list for
// PartialReadings.
func NewQueryHandler(reg *catalog.Registry, partial []string, readings ReadingLister, tel *telemetry.Telemetry, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{
		registry:  reg,
		schema:    timeseries.NewSchema(reg),
		partial:   partial,
		readings:  readings,
		telemetry: tel,
		logger:    logger.With("handler", "query"),
	}
}

// Readings handles GET /query?metrics=NAME&metrics=NAME. Requested names
// must be members of the registry's name set; an unknown name rejects the
// whole request before anything is fetched.
func (h *QueryHandler) Readings(w http.ResponseWriter, r *http.Request) {
	metrics := queryMetrics(r)
	if len(metrics) == 0 {
		metrics = h.registry.Names()
	}

	// An unknown requested name is a malformed request, not a missing
	// resource: reject with 400 before anything is fetched.
	if err := h.registry.NameSet().Validate(metrics); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	h.respond(w, r, metrics)
}

// PartialReadings handles GET /aggregated/query. It serves the configured
// partial subset of the registry; an explicit metrics parameter narrows the
// result further but is still validated against the full registry.
func (h *QueryHandler) PartialReadings(w http.ResponseWriter, r *http.Request) {
	metrics := queryMetrics(r)
	if len(metrics) == 0 {
		metrics = h.partial
	}

	if err := h.registry.NameSet().Validate(metrics); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	h.respond(w, r, metrics)
}

func (h *QueryHandler) respond(w http.ResponseWriter, r *http.Request, metrics []string) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	series, err := h.readings.List(r.Context(), opts)
	if err != nil {
		handleError(w, r, err, h.logger)
		return
	}

	filtered, err := h.schema.Filter(series, metrics)
	if err != nil {
		if errors.IsSchemaViolation(err) && h.telemetry != nil {
			h.telemetry.IncrementSchemaViolations()
		}
		handleError(w, r, err, h.logger)
		return
	}

	if h.telemetry != nil {
		h.telemetry.IncrementFilterRows("kept", len(filtered))
		h.telemetry.IncrementFilterRows("dropped", len(series)-len(filtered))
	}

	writeJSON(w, r, http.StatusOK, QueryResponse{
		Response: filtered,
		Total:    len(filtered),
	})
}

// queryMetrics collects the requested metric names, accepting both repeated
// metrics parameters and comma-separated lists.
func queryMetrics(r *http.Request) []string {
	var metrics []string
	for _, raw := range r.URL.Query()["metrics"] {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				metrics = append(metrics, name)
			}
		}
	}
	return metrics
}

// listOptions parses the since and limit query parameters. The metric
// restriction is deliberately not pushed down to the store: the whole table
// must pass schema validation, not only the requested slice.
func listOptions(r *http.Request) (store.ListOptions, error) {
	opts := store.ListOptions{Limit: maxQueryLimit}

	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return opts, errors.ErrConfigInvalid("since", "must be an RFC 3339 timestamp")
		}
		opts.Since = since
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > maxQueryLimit {
			return opts, errors.ErrConfigInvalid("limit", "must be a positive integer up to 10000")
		}
		opts.Limit = limit
	}
	return opts, nil
}
