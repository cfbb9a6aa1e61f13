package bootstrap

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"memosetup/config"
	"memosetup/container"
	"memosetup/core"
	"memosetup/migrate"
	"memosetup/smoke"
)

// State names one node of the setup flow.
type State string

const (
	StateStart            State = "start"
	StateMenuShown        State = "menu-shown"
	StateBackendSelected  State = "backend-selected"
	StateContainerStarted State = "container-started"
	StateSkipContainer    State = "skip-container"
	StateDatabaseReady    State = "database-ready"
	StateMigrationsRun    State = "migrations-run"
	StateSmokeTested      State = "smoke-tested"
	StateDone             State = "done"
)

// RunReport summarizes one setup run for rendering and for the exit code
// decision: the run is successful only if every fatal step succeeded and
// the smoke test passed.
type RunReport struct {
	RunID     string           `json:"run_id" yaml:"run_id"`
	Backend   core.BackendKind `json:"backend" yaml:"backend"`
	URL       string           `json:"url" yaml:"url"`
	States    []State          `json:"states" yaml:"states"`
	Migration *migrate.Result  `json:"migration,omitempty" yaml:"migration,omitempty"`
	Smoke     *smoke.Report    `json:"smoke,omitempty" yaml:"smoke,omitempty"`
}

// Success reports whether every step of the run, the smoke test included,
// completed.
func (r *RunReport) Success() bool {
	return len(r.States) > 0 && r.States[len(r.States)-1] == StateDone
}

// App wires the components a setup run needs.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Sugar   *zap.SugaredLogger
	Runtime *container.Runtime

	// waitReady is replaced in tests to avoid a real PostgreSQL dial.
	waitReady func(ctx context.Context, desc core.ConnectionDescriptor) error
}

// NewApp initializes logging, configuration and the container runtime
// adapter. configFile may be empty, in which case the default search paths
// apply.
func NewApp(configFile string) (*App, error) {
	logger, sugar, err := InitLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := InitConfig(sugar, configFile)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Sugar:   sugar,
		Runtime: container.NewRuntime(cfg.Container.Runtime, sugar),
	}
	app.waitReady = app.defaultWaitReady
	return app, nil
}

// SelectBackend maps the operator's menu choice onto a connection
// descriptor. Invalid input is fatal before anything external runs.
func (a *App) SelectBackend(choice string) (core.ConnectionDescriptor, error) {
	return core.SelectBackend(choice, a.Config.BackendDefaults())
}

// Provision makes the chosen backend exist: for the container backend it
// verifies the runtime and launches the database container, for the others
// it does nothing. Returns true when a container start was attempted.
func (a *App) Provision(ctx context.Context, desc core.ConnectionDescriptor) (bool, error) {
	if desc.Kind != core.BackendContainerPostgres {
		return false, nil
	}

	if err := a.Runtime.Available(ctx); err != nil {
		return false, err
	}

	spec := container.StartSpec{
		Name:     a.Config.Container.Name,
		Image:    a.Config.Container.Image,
		Port:     desc.Port,
		Password: desc.Password,
		Database: desc.Database,
	}
	if err := a.Runtime.StartPostgres(ctx, spec); err != nil {
		return true, err
	}
	return true, nil
}

// AwaitReady blocks until the chosen database accepts connections, bounded
// by the configured readiness window.
func (a *App) AwaitReady(ctx context.Context, desc core.ConnectionDescriptor) error {
	return a.waitReady(ctx, desc)
}

func (a *App) defaultWaitReady(ctx context.Context, desc core.ConnectionDescriptor) error {
	if desc.Kind == core.BackendSQLite {
		if err := EnsureSQLiteDir(desc.Path); err != nil {
			return fmt.Errorf("%s", ClassifySQLiteError(err, desc.Path))
		}
		return nil
	}
	return WaitForPostgres(ctx, desc, ReadinessConfig{
		MaxWait:     a.Config.Readiness.MaxWait,
		Interval:    a.Config.Readiness.Interval,
		MaxInterval: a.Config.Readiness.MaxInterval,
	}, a.Sugar)
}

// Migrate brings the schema up to date. Runs exactly once per setup run,
// after provisioning and before the smoke test.
func (a *App) Migrate(ctx context.Context, desc core.ConnectionDescriptor) (*migrate.Result, error) {
	return migrate.Run(ctx, desc, migrate.Options{
		SchemaTable: a.Config.Migrator.SchemaTable,
		Dir:         a.Config.Migrator.Dir,
		Command:     a.Config.Migrator.Command,
		Args:        a.Config.Migrator.Args,
		Workdir:     a.Config.Migrator.Workdir,
	}, a.Sugar)
}

// SmokeTest runs the application once against the provisioned database.
func (a *App) SmokeTest(ctx context.Context, desc core.ConnectionDescriptor) (*smoke.Report, error) {
	return smoke.Run(ctx, desc, smoke.Options{
		Command:      a.Config.App.Command,
		Args:         a.Config.App.Args,
		StartupProbe: a.Config.App.StartupProbe,
	}, a.Sugar)
}

// Run executes the whole flow for one already-read menu choice. The report
// is returned alongside the first fatal error; callers decide rendering and
// exit code from both.
func (a *App) Run(ctx context.Context, choice string) (*RunReport, error) {
	report := &RunReport{
		RunID:  uuid.NewString(),
		States: []State{StateStart, StateMenuShown},
	}

	desc, err := a.SelectBackend(choice)
	if err != nil {
		return report, err
	}
	report.Backend = desc.Kind
	report.URL = desc.RedactedURL()
	report.States = append(report.States, StateBackendSelected)

	started, err := a.Provision(ctx, desc)
	if err != nil {
		return report, err
	}
	if started {
		report.States = append(report.States, StateContainerStarted)
	} else {
		report.States = append(report.States, StateSkipContainer)
	}

	if err := a.AwaitReady(ctx, desc); err != nil {
		return report, err
	}
	report.States = append(report.States, StateDatabaseReady)

	migration, err := a.Migrate(ctx, desc)
	if err != nil {
		return report, err
	}
	report.Migration = migration
	report.States = append(report.States, StateMigrationsRun)

	smokeReport, err := a.SmokeTest(ctx, desc)
	report.Smoke = smokeReport
	report.States = append(report.States, StateSmokeTested)
	if err != nil {
		if a.Config.StartupMode != config.StartupModeGraceful {
			return report, err
		}
		// Graceful mode treats the smoke test as advisory: the database is
		// set up and migrated, so the run itself succeeds.
		a.Sugar.Warnw("Smoke test failed, continuing in graceful mode", "error", err)
	}

	report.States = append(report.States, StateDone)
	return report, nil
}
