// Package cli provides command-line interface commands for the meteoreg
// metrics catalog service. This package implements the Cobra-based CLI
// structure with commands for serving the API, inspecting the catalog,
// and managing API keys.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/windrose/meteoreg/internal/config"
	"github.com/windrose/meteoreg/internal/logging"
)

const (
	// Default configuration constants.
	defaultDatabasePort = 5432
	defaultAPIPort      = 8080
)

var (
	cfgFile string
	verbose bool
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "meteoreg",
	Short: "Meteorological metrics catalog service",
	Long: `Meteoreg maintains a taxonomy of meteorological metrics organized into
prefix-namespaced registries and serves schema-gated time-series queries
over them. Every query validates the whole stored table against the
registry before filtering, so malformed data never leaks partially.`,
	Version: getVersion(),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind verbose flag: %v\n", err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in current directory
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match. Nested keys map to
	// underscored variables, e.g. api.port becomes METEOREG_API_PORT.
	viper.AutomaticEnv()
	viper.SetEnvPrefix("METEOREG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults for common configuration
	setConfigDefaults()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}

	// Initialize structured logging after config is loaded
	initLogging()
}

// setConfigDefaults sets default values for configuration.
func setConfigDefaults() {
	// Database configuration
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", defaultDatabasePort)
	viper.SetDefault("database.database", "meteoreg")
	viper.SetDefault("database.username", "meteoreg")
	viper.SetDefault("database.ssl_mode", "disable")

	// API configuration
	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.listen_addr", "127.0.0.1")
	viper.SetDefault("api.port", defaultAPIPort)

	// Sampler configuration
	viper.SetDefault("sampler.enabled", false)
	viper.SetDefault("sampler.schedule", "@every 1m")

	// Logging configuration
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.output", "stdout")
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
}

// initLogging initializes structured logging based on configuration.
func initLogging() {
	logCfg := logging.DefaultConfig()
	if cfg, err := loadConfig(); err == nil {
		logCfg = logging.Config{
			Level:     logging.LogLevel(cfg.Logging.Level),
			Format:    logging.LogFormat(cfg.Logging.Format),
			Output:    cfg.Logging.Output,
			AddSource: cfg.Logging.AddSource,
		}
	}
	if verbose {
		logCfg.Level = logging.LevelDebug
	}

	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
		return
	}
	logging.SetDefault(logger)
}

// loadConfig loads the service configuration from the configured file,
// falling back to defaults when no file is present, then overlays values
// bound through viper so METEOREG_* environment variables take effect.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = viper.ConfigFileUsed()
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	// Only keys registered in setConfigDefaults participate in the env
	// overlay; the config struct uses yaml tags for its field names.
	if err := viper.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
