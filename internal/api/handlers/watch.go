package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/windrose/meteoreg/internal/catalog"
	"github.com/windrose/meteoreg/internal/store"
	"github.com/windrose/meteoreg/internal/timeseries"
)

const (
	watchPollInterval = 5 * time.Second
	watchWriteTimeout = 10 * time.Second
	watchPingInterval = 30 * time.Second
)

// WatchUpdate is one websocket frame: the readings recorded since the
// previous frame.
type WatchUpdate struct {
	Timestamp time.Time         `json:"timestamp"`
	Readings  timeseries.Series `json:"readings"`
	Total     int               `json:"total"`
}

// WatchHandler streams fresh readings over a websocket. Clients may narrow
// the stream with the same metrics parameter the query endpoints accept.
type WatchHandler struct {
	registry *catalog.Registry
	schema   *timeseries.Schema
	readings ReadingLister
	interval time.Duration
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWatchHandler creates a watch handler polling the readings store on a
// fixed interval.
func NewWatchHandler(reg *catalog.Registry, readings ReadingLister, logger *slog.Logger) *WatchHandler {
	return &WatchHandler{
		registry: reg,
		schema:   timeseries.NewSchema(reg),
		readings: readings,
		interval: watchPollInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Same trust model as the REST endpoints: CORS policy is
				// enforced at the middleware layer.
				return true
			},
		},
		logger: logger.With("handler", "watch"),
	}
}

// Watch handles GET /readings/watch.
func (h *WatchHandler) Watch(w http.ResponseWriter, r *http.Request) {
	metrics := queryMetrics(r)
	if len(metrics) == 0 {
		metrics = h.registry.Names()
	}
	if err := h.registry.NameSet().Validate(metrics); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.logger.Debug("Watch client connected",
		"remote_addr", r.RemoteAddr,
		"metrics", len(metrics))

	// The read pump only exists to observe the close handshake.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	poll := time.NewTicker(h.interval)
	defer poll.Stop()
	ping := time.NewTicker(watchPingInterval)
	defer ping.Stop()

	since := time.Now().UTC()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			return
		case <-ping.C:
			deadline := time.Now().Add(watchWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case now := <-poll.C:
			update, err := h.collect(r, metrics, since)
			if err != nil {
				h.logger.Error("Watch poll failed", "error", err)
				continue
			}
			since = now.UTC()
			if update.Total == 0 {
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if err := conn.WriteJSON(update); err != nil {
				h.logger.Debug("Watch client gone", "error", err)
				return
			}
		}
	}
}

func (h *WatchHandler) collect(r *http.Request, metrics []string, since time.Time) (WatchUpdate, error) {
	series, err := h.readings.List(r.Context(), store.ListOptions{Since: since, Limit: maxQueryLimit})
	if err != nil {
		return WatchUpdate{}, err
	}

	filtered, err := h.schema.Filter(series, metrics)
	if err != nil {
		return WatchUpdate{}, err
	}

	return WatchUpdate{
		Timestamp: time.Now().UTC(),
		Readings:  filtered,
		Total:     len(filtered),
	}, nil
}
