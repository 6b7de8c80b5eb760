// Package cli provides command-line interface commands for the meteoreg
// metrics catalog service. This file implements configuration management
// commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/windrose/meteoreg/internal/config"
)

// configCmd represents the config command group.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage service configuration",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// configInitCmd writes a default configuration file.
var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default configuration file",
	Long: `Write a configuration file populated with defaults, including the
canonical meteorological catalog seed. Defaults to ./config.yaml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

// configValidateCmd loads and validates the configuration.
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := "config.yaml"
	if len(args) > 0 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing config file %s", path)
	}

	if err := config.Default().Save(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	cmd.Printf("Wrote default configuration to %s\n", path)
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	cat, err := buildCatalog(cfg)
	if err != nil {
		return err
	}

	cmd.Printf("Configuration is valid: %d base metrics, %d aggregated variants\n",
		cat.Main.Len(), cat.Aggregated.Len())
	return nil
}
