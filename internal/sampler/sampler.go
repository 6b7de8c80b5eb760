// Package sampler generates synthetic metric readings on a cron schedule.
// Each tick produces one reading per metric in the main registry and writes
// the batch through the readings store, so a fresh deployment has data to
// query without an external feed.
package sampler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/windrose/meteoreg/internal/catalog"
	"github.com/windrose/meteoreg/internal/logging"
	"github.com/windrose/meteoreg/internal/timeseries"
)

// ReadingWriter is the slice of the readings store the sampler needs.
type ReadingWriter interface {
	InsertBatch(ctx context.Context, series timeseries.Series) error
}

// Sampler periodically writes synthetic readings for every metric in a
// registry.
type Sampler struct {
	registry *catalog.Registry
	writer   ReadingWriter
	schedule string
	logger   *logging.Logger

	cron    *cron.Cron
	rng     *rand.Rand
	last    map[string]float64
	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a sampler generating readings for the metrics of registry on
// the given cron schedule (robfig/cron syntax, e.g. "@every 1m").
func New(registry *catalog.Registry, writer ReadingWriter, schedule string, logger *logging.Logger) *Sampler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Sampler{
		registry: registry,
		writer:   writer,
		schedule: schedule,
		logger:   logger.WithComponent("sampler"),
		cron:     cron.New(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		last:     make(map[string]float64),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins scheduled sampling.
func (s *Sampler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("sampler is already running")
	}

	if _, err := s.cron.AddFunc(s.schedule, s.sampleOnce); err != nil {
		return fmt.Errorf("invalid sampler schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("Sampler started",
		"schedule", s.schedule,
		"metrics", s.registry.Len())
	return nil
}

// Stop stops scheduled sampling.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cron.Stop()
	s.cancel()
	s.running = false

	s.logger.Info("Sampler stopped")
}

// sampleOnce generates one reading per registered metric and stores the
// batch.
func (s *Sampler) sampleOnce() {
	series := s.Generate(time.Now().UTC())

	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	if err := s.writer.InsertBatch(ctx, series); err != nil {
		s.logger.Error("Failed to store sampled readings", "error", err)
		return
	}
	s.logger.Debug("Stored sampled readings", "rows", len(series))
}

// Generate produces one synthetic reading per registered metric at the
// given timestamp. Cumulative metrics only ever grow; instantaneous ones
// follow a bounded random walk.
func (s *Sampler) Generate(at time.Time) timeseries.Series {
	s.mu.Lock()
	defer s.mu.Unlock()

	series := make(timeseries.Series, 0, s.registry.Len())
	for _, m := range s.registry.Metrics() {
		series = append(series, timeseries.Row{
			Metric:    m.FullName(),
			Timestamp: at,
			Value:     s.nextValue(m),
		})
	}
	return series
}

func (s *Sampler) nextValue(m catalog.Metric) float64 {
	prev := s.last[m.FullName()]

	var next float64
	if m.Cumulative() {
		next = prev + s.rng.Float64()
	} else {
		next = prev + (s.rng.Float64()-0.5)*2
	}

	s.last[m.FullName()] = next
	return next
}
