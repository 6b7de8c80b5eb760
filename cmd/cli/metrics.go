// Package cli provides command-line interface commands for the meteoreg
// metrics catalog service. This file implements catalog inspection commands
// for listing and showing metric definitions.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/windrose/meteoreg/internal/catalog"
)

// Metrics command flags.
var (
	metricsRegistry string
	metricsOutput   string
)

// metricsCmd represents the metrics command group.
var metricsCmd = &cobra.Command{
	Use:     "metrics",
	Aliases: []string{"metric", "m"},
	Short:   "Inspect the metrics catalog",
	Long: `Inspect the configured metrics catalog without starting the server.

The catalog is built from the same seed configuration the server uses, so
the output matches what the API would serve.

Examples:
  # List the base metrics
  meteoreg metrics list

  # List the aggregated variants
  meteoreg metrics list --registry aggregated

  # Show a single metric by full name
  meteoreg metrics show TEMPERATURE_MIN

  # Print the valid name set as JSON
  meteoreg metrics names --output json`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// metricsListCmd lists the metrics of one registry.
var metricsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "l"},
	Short:   "List metrics",
	RunE:    runMetricsList,
}

// metricsShowCmd shows a single metric by full name.
var metricsShowCmd = &cobra.Command{
	Use:   "show <full-name>",
	Short: "Show a metric definition",
	Args:  cobra.ExactArgs(1),
	RunE:  runMetricsShow,
}

// metricsNamesCmd prints the name set of one registry.
var metricsNamesCmd = &cobra.Command{
	Use:   "names",
	Short: "Print the valid full names of a registry",
	RunE:  runMetricsNames,
}

func init() {
	metricsCmd.PersistentFlags().StringVar(&metricsRegistry, "registry", "main",
		"registry to inspect (main, aggregated, partial)")
	metricsCmd.PersistentFlags().StringVarP(&metricsOutput, "output", "o", "table",
		"output format (table, json)")

	metricsCmd.AddCommand(metricsListCmd)
	metricsCmd.AddCommand(metricsShowCmd)
	metricsCmd.AddCommand(metricsNamesCmd)
	rootCmd.AddCommand(metricsCmd)
}

// selectRegistry resolves the --registry flag against a built catalog.
func selectRegistry(cat *catalog.Catalog) (*catalog.Registry, error) {
	switch strings.ToLower(metricsRegistry) {
	case "", "main":
		return cat.Main, nil
	case "aggregated":
		return cat.Aggregated, nil
	case "partial":
		if cat.Partial == nil {
			return nil, fmt.Errorf("no partial registry is configured")
		}
		return cat.Partial, nil
	default:
		return nil, fmt.Errorf("unknown registry %q (expected main, aggregated or partial)", metricsRegistry)
	}
}

func loadCatalog() (*catalog.Catalog, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return buildCatalog(cfg)
}

func runMetricsList(_ *cobra.Command, _ []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	reg, err := selectRegistry(cat)
	if err != nil {
		return err
	}

	if metricsOutput == "json" {
		return printJSON(reg.Definitions())
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Full Name", "Name", "Unit", "Cumulative", "Aggregation", "Table Column")

	for _, m := range reg.Metrics() {
		agg := "-"
		if a, ok := m.Aggregation(); ok {
			agg = a.String()
		}
		_ = table.Append([]string{
			m.FullName(),
			m.Name(),
			m.Unit(),
			fmt.Sprintf("%t", m.Cumulative()),
			agg,
			m.TableColumn(),
		})
	}

	if err := table.Render(); err != nil {
		return err
	}
	fmt.Printf("\nTotal: %d metrics (registry %q)\n", reg.Len(), reg.NameSet().Name())
	return nil
}

func runMetricsShow(_ *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	reg, err := selectRegistry(cat)
	if err != nil {
		return err
	}

	m, err := reg.Get(args[0])
	if err != nil {
		return err
	}

	if metricsOutput == "json" {
		return printJSON(m.Definition())
	}

	fmt.Println(m.String())
	fmt.Printf("Table column: %s\n", m.TableColumn())
	return nil
}

func runMetricsNames(_ *cobra.Command, _ []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	reg, err := selectRegistry(cat)
	if err != nil {
		return err
	}

	names := reg.NameSet()
	if metricsOutput == "json" {
		return printJSON(map[string]interface{}{
			"name":    names.Name(),
			"prefix":  names.Prefix(),
			"members": names.Names(),
		})
	}

	fmt.Printf("%s:\n", names.Name())
	for _, name := range names.Names() {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
