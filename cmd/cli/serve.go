// Package cli provides command-line interface commands for the meteoreg
// metrics catalog service. This file implements the serve command running
// the API server with its supporting services.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/windrose/meteoreg/internal/api"
	"github.com/windrose/meteoreg/internal/catalog"
	"github.com/windrose/meteoreg/internal/config"
	"github.com/windrose/meteoreg/internal/logging"
	"github.com/windrose/meteoreg/internal/sampler"
	"github.com/windrose/meteoreg/internal/store"
	"github.com/windrose/meteoreg/internal/telemetry"
)

const databaseConnectTimeout = 10 * time.Second

// Serve command flags.
var (
	serveHost      string
	servePort      int
	serveNoStore   bool
	serveNoSampler bool
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	Long: `Run the meteoreg API server.

The server exposes the metric registries and the schema-gated time-series
query endpoints. With a readings store configured it also serves stored
readings; with the sampler enabled it generates synthetic readings on a
schedule so a fresh deployment has data to query.`,
	Example: `  meteoreg serve
  meteoreg serve --host 0.0.0.0 --port 8080
  meteoreg serve --no-store`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen address (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	serveCmd.Flags().BoolVar(&serveNoStore, "no-store", false, "run catalog-only, without the readings store")
	serveCmd.Flags().BoolVar(&serveNoSampler, "no-sampler", false, "disable the synthetic reading sampler")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if serveHost != "" {
		cfg.API.ListenAddr = serveHost
	}
	if servePort != 0 {
		cfg.API.Port = servePort
	}

	logger := logging.Default()

	cat, err := buildCatalog(cfg)
	if err != nil {
		return err
	}
	logger.InfoCatalog("Catalog built",
		"main", cat.Main.Len(),
		"aggregated", cat.Aggregated.Len())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel := telemetry.New()

	var (
		db       *store.DB
		readings *store.ReadingsRepository
	)
	if !serveNoStore {
		db, readings, err = connectStore(ctx, cfg, tel, logger)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	if cfg.Sampler.Enabled && !serveNoSampler && readings != nil {
		smp := sampler.New(cat.Main, readings, cfg.Sampler.Schedule, logger)
		if err := smp.Start(); err != nil {
			return fmt.Errorf("failed to start sampler: %w", err)
		}
		defer smp.Stop()
	}

	api.Version = version
	api.Commit = commit

	srv := api.New(cfg, cat, db, readings, tel, logger)
	return srv.Start(ctx)
}

// buildCatalog constructs the canonical registries from the configured seed.
func buildCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	seed, err := cfg.Catalog.Seed()
	if err != nil {
		return nil, fmt.Errorf("invalid catalog configuration: %w", err)
	}

	cat, err := catalog.Build(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}
	return cat, nil
}

// connectStore connects to PostgreSQL and ensures the readings schema. The
// returned repository reports its queries through tel.
func connectStore(ctx context.Context, cfg *config.Config, tel *telemetry.Telemetry, logger *logging.Logger) (*store.DB, *store.ReadingsRepository, error) {
	connectCtx, cancel := context.WithTimeout(ctx, databaseConnectTimeout)
	defer cancel()

	db, err := store.Connect(connectCtx, &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(connectCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ensure readings schema: %w", err)
	}

	logger.InfoStore("Connected to readings store",
		"host", cfg.Database.Host,
		"database", cfg.Database.Database)
	return db, store.NewReadingsRepository(db, tel), nil
}
