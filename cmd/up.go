package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"memosetup/bootstrap"
	"memosetup/config"
	"memosetup/core"
	"memosetup/migrate"
)

// newUpCmd creates the 'up' subcommand. Running the bare binary is
// equivalent to 'memosetup up'.
func newUpCmd() *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Run the full setup flow",
		Long: `Run the full setup flow: choose a backend, provision it, wait until the
database accepts connections, apply migrations and smoke-test the application.

With --backend the menu is skipped, which makes the command scriptable:

  memosetup up --backend 2
  memosetup up --backend container-postgres --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd.Context(), backend)
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "",
		"Backend choice (1-3 or container-postgres, sqlite, local-postgres)")

	return cmd
}

func runUp(ctx context.Context, backend string) error {
	app, err := initApp()
	if err != nil {
		return err
	}

	// Flag-driven runs go through the programmatic path so their output is
	// stable for scripts.
	if backend != "" {
		report, err := app.Run(ctx, backend)
		if renderErr := renderRunReport(report); renderErr != nil {
			return renderErr
		}
		return err
	}

	reader := stdinReader()
	choice := promptBackendChoice(reader)
	return runInteractive(ctx, app, reader, choice)
}

// runInteractive walks the setup steps one at a time so each gets its own
// progress line. The flow and failure handling mirror the programmatic run.
func runInteractive(ctx context.Context, app *bootstrap.App, reader *bufio.Reader, choice string) error {
	report := &bootstrap.RunReport{
		RunID:  uuid.NewString(),
		States: []bootstrap.State{bootstrap.StateStart, bootstrap.StateMenuShown},
	}

	desc, err := app.SelectBackend(choice)
	if err != nil {
		errorColor.Printf("✗ %v\n", err)
		return err
	}
	report.Backend = desc.Kind
	report.URL = desc.RedactedURL()
	report.States = append(report.States, bootstrap.StateBackendSelected)

	if !quiet {
		infoColor.Printf("Selected backend: %s\n", desc.Kind)
		fmt.Printf("  Database URL: %s\n", desc.RedactedURL())
	}

	if desc.Kind == core.BackendSQLite {
		if _, statErr := os.Stat(desc.Path); statErr == nil {
			if !promptYesNo(reader, fmt.Sprintf("SQLite database %s already exists, reuse it?", desc.Path), true) {
				return fmt.Errorf("move or remove %s and run setup again", desc.Path)
			}
		}
	}

	var started bool
	if desc.Kind == core.BackendContainerPostgres {
		if err := runStep(" Starting database container...", func() error {
			var stepErr error
			started, stepErr = app.Provision(ctx, desc)
			return stepErr
		}); err != nil {
			errorColor.Printf("✗ %v\n", err)
			return err
		}
	}
	if started {
		report.States = append(report.States, bootstrap.StateContainerStarted)
		printStepDone("Database container running")
	} else {
		report.States = append(report.States, bootstrap.StateSkipContainer)
	}

	if err := runStep(" Waiting for the database...", func() error {
		return app.AwaitReady(ctx, desc)
	}); err != nil {
		errorColor.Printf("✗ %v\n", err)
		return err
	}
	report.States = append(report.States, bootstrap.StateDatabaseReady)
	printStepDone("Database ready")

	var migration *migrate.Result
	if err := runStep(" Applying migrations...", func() error {
		var stepErr error
		migration, stepErr = app.Migrate(ctx, desc)
		return stepErr
	}); err != nil {
		errorColor.Printf("✗ %v\n", err)
		return err
	}
	report.Migration = migration
	report.States = append(report.States, bootstrap.StateMigrationsRun)
	if migration != nil && !migration.External {
		printStepDone(fmt.Sprintf("Migrations applied: %d", len(migration.Applied)))
	} else {
		printStepDone("Migrations applied")
	}

	smokeReport, smokeErr := app.SmokeTest(ctx, desc)
	report.Smoke = smokeReport
	report.States = append(report.States, bootstrap.StateSmokeTested)
	if smokeErr != nil {
		errorColor.Printf("✗ Application smoke test failed: %v\n", smokeErr)
		if smokeReport != nil && smokeReport.Output != "" {
			fmt.Println(smokeReport.Output)
		}
		if app.Config.StartupMode != config.StartupModeGraceful {
			if renderErr := renderRunReport(report); renderErr != nil {
				return renderErr
			}
			return smokeErr
		}
		warningColor.Println("⚠ Continuing despite smoke test failure (graceful mode)")
	} else {
		printStepDone("Application smoke test passed")
	}

	report.States = append(report.States, bootstrap.StateDone)
	if err := renderRunReport(report); err != nil {
		return err
	}
	if !quiet {
		successColor.Println("✓ Smart Memo setup complete")
	}
	return nil
}

// runStep wraps a blocking step with a progress spinner unless structured or
// quiet output was requested.
func runStep(suffix string, fn func() error) error {
	var s *spinner.Spinner
	if !outputJSON && !outputYAML && !quiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = suffix
		s.Start()
	}

	err := fn()

	if s != nil {
		s.Stop()
	}
	return err
}

func printStepDone(msg string) {
	if !quiet {
		successColor.Printf("✓ %s\n", msg)
	}
}
