// Package cmd provides the command-line interface for the Smart Memo setup
// tool.
package cmd

import (
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"memosetup/bootstrap"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags
var (
	outputJSON bool
	outputYAML bool
	configFile string
	noColor    bool
	quiet      bool
)

// defaultTimeout bounds every CLI operation except the readiness poll and
// the smoke test, which carry their own configured bounds.
const defaultTimeout = 5 * time.Minute

// NewRootCmd creates the memosetup root command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "memosetup",
		Short: "Set up a database backend for the Smart Memo application",
		Long: `Set up a database backend for the Smart Memo application.

Running without a subcommand starts the interactive setup: choose one of the
three supported backends (containerized PostgreSQL, SQLite or a local
PostgreSQL server), wait for it to accept connections, apply the schema
migrations and run the application once as a smoke test.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd.Context(), "")
		},
	}

	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&outputYAML, "yaml", false, "Output in YAML format")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: config.yaml in . or ./config)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")

	rootCmd.AddCommand(newUpCmd())
	rootCmd.AddCommand(newContainerCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newSmokeCmd())
	rootCmd.AddCommand(newStatusCmd())

	return rootCmd
}

// initApp builds the application once per command invocation.
func initApp() (*bootstrap.App, error) {
	return bootstrap.NewApp(configFile)
}
