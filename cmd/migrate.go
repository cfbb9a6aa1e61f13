package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"memosetup/migrate"
)

// newMigrateCmd creates the 'migrate' subcommand, which applies migrations
// without provisioning or smoke testing.
func newMigrateCmd() *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations",
		Long: `Apply schema migrations to the chosen backend. The database must already
be running; use 'container start' first for the containerized backend.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

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

			if err := app.AwaitReady(ctx, desc); err != nil {
				return err
			}

			var result *migrate.Result
			if err := runStep(" Applying migrations...", func() error {
				var stepErr error
				result, stepErr = app.Migrate(ctx, desc)
				return stepErr
			}); err != nil {
				return err
			}

			if outputJSON || outputYAML {
				return renderStructured(result)
			}

			if result.External {
				successColor.Println("✓ External migration tool completed")
				return nil
			}
			if len(result.Applied) == 0 {
				infoColor.Println("Schema already up to date")
				return nil
			}
			successColor.Printf("✓ Applied %d migrations:\n", len(result.Applied))
			for _, name := range result.Applied {
				fmt.Printf("  - %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "",
		"Backend choice (1-3 or container-postgres, sqlite, local-postgres)")

	return cmd
}
