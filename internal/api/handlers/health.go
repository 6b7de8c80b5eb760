package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const healthCheckTimeout = 5 * time.Second

// DatabasePinger is the minimal database surface health checks need.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus represents the health state of the service.
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// VersionInfo describes the running build.
type VersionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// HealthHandler serves liveness, readiness and version endpoints.
type HealthHandler struct {
	db        DatabasePinger
	version   VersionInfo
	startTime time.Time
	logger    *slog.Logger
}

// NewHealthHandler creates a health handler. db may be nil when the service
// runs without a readings store.
func NewHealthHandler(db DatabasePinger, version VersionInfo, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		version:   version,
		startTime: time.Now(),
		logger:    logger.With("handler", "health"),
	}
}

// Health handles GET /healthz: the service is healthy only when its
// dependencies respond.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version.Version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    map[string]string{},
	}
	code := http.StatusOK

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("Database health check failed", "error", err)
			status.Status = "unhealthy"
			status.Checks["database"] = "unreachable"
			code = http.StatusServiceUnavailable
		} else {
			status.Checks["database"] = "ok"
		}
	} else {
		status.Checks["database"] = "disabled"
	}

	writeJSON(w, r, code, status)
}

// Liveness handles GET /livez: reachable means alive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, HealthStatus{
		Status:    "alive",
		Timestamp: time.Now().UTC(),
	})
}

// Version handles GET /version.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.version)
}
