package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"memosetup/smoke"
)

// newSmokeCmd creates the 'smoke' subcommand, which runs the application
// once against an already-provisioned backend.
func newSmokeCmd() *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run the application smoke test",
		Long: `Start the Smart Memo application once with the backend's DATABASE_URL
injected into its environment. The test passes when the process either exits
cleanly or survives the startup probe window. A non-zero exit fails the test
and the command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initApp()
			if err != nil {
				return err
			}

			if backend == "" {
				backend = promptBackendChoice(stdinReader())
			}

			desc, err := app.SelectBackend(backend)
			if err != nil {
				return err
			}

			var report *smoke.Report
			runErr := runStep(" Running application smoke test...", func() error {
				var stepErr error
				report, stepErr = app.SmokeTest(cmd.Context(), desc)
				return stepErr
			})

			if outputJSON || outputYAML {
				if renderErr := renderStructured(report); renderErr != nil {
					return renderErr
				}
				return runErr
			}

			if runErr != nil {
				errorColor.Printf("✗ Smoke test failed: %v\n", runErr)
				if report != nil && report.Output != "" {
					fmt.Println(report.Output)
				}
				return runErr
			}

			if report.Survived {
				successColor.Printf("✓ Application stayed up for %s\n", report.Duration.Round(time.Millisecond))
			} else {
				successColor.Println("✓ Application exited cleanly")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "",
		"Backend choice (1-3 or container-postgres, sqlite, local-postgres)")

	return cmd
}
