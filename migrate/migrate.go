// Package migrate brings the chosen database up to the current Smart Memo
// schema. Migrations are embedded SQL pairs executed in-process with
// gostgrator; an external migration command can be configured instead for
// projects that ship their own runner.
package migrate

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bcomnes/gostgrator"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"memosetup/core"
)

//go:embed migrations/pg/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// Options configures a migration run.
type Options struct {
	// SchemaTable stores migration state in the target database.
	SchemaTable string
	// Dir is where the embedded migrations are materialized before running.
	Dir string
	// Command, when non-empty, runs an external migration tool instead of
	// the in-process runner. Args and Workdir apply to it.
	Command string
	Args    []string
	Workdir string
}

// Result reports what a migration run did.
type Result struct {
	// Applied lists the migrations executed this run, in order.
	Applied []string `json:"applied" yaml:"applied"`
	// External is true when an external migration command ran instead of
	// the embedded runner.
	External bool `json:"external" yaml:"external"`
}

// Run migrates the database addressed by desc to the latest version. Any
// failure wraps core.ErrMigrationFailed; the bootstrapper treats that as
// fatal.
func Run(ctx context.Context, desc core.ConnectionDescriptor, opts Options, sugar *zap.SugaredLogger) (*Result, error) {
	if opts.Command != "" {
		return runExternal(ctx, desc, opts, sugar)
	}
	return runEmbedded(ctx, desc, opts, sugar)
}

func runEmbedded(ctx context.Context, desc core.ConnectionDescriptor, opts Options, sugar *zap.SugaredLogger) (*Result, error) {
	dialect := "sqlite"
	driver := "sqlite3"
	if desc.IsPostgres() {
		dialect = "pg"
		driver = "pg"
	}

	dir, err := materializeMigrations(opts.Dir, dialect)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMigrationFailed, err)
	}

	db, err := openDatabase(desc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMigrationFailed, err)
	}
	defer db.Close()

	cfg := gostgrator.Config{
		Driver:            driver,
		SchemaTable:       opts.SchemaTable,
		MigrationPattern:  filepath.Join(dir, "*.sql"),
		ValidateChecksums: true,
	}

	g, err := gostgrator.NewGostgrator(cfg, db)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMigrationFailed, err)
	}

	applied, err := g.Migrate(ctx, "max")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMigrationFailed, err)
	}

	result := &Result{}
	for _, m := range applied {
		result.Applied = append(result.Applied, fmt.Sprintf("%03d %s", m.Version, m.Name))
	}
	sugar.Infow("Migrations complete",
		"backend", string(desc.Kind),
		"applied", len(result.Applied))
	return result, nil
}

// runExternal invokes the configured migration tool in its working directory
// with the connection URL injected into that process only.
func runExternal(ctx context.Context, desc core.ConnectionDescriptor, opts Options, sugar *zap.SugaredLogger) (*Result, error) {
	cmd := exec.CommandContext(ctx, opts.Command, opts.Args...)
	cmd.Dir = opts.Workdir
	cmd.Env = scopedEnv(desc)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	sugar.Infow("Running external migration command",
		"command", opts.Command,
		"workdir", opts.Workdir)

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v: %s",
			core.ErrMigrationFailed, opts.Command, err, strings.TrimSpace(output.String()))
	}

	return &Result{External: true}, nil
}

// openDatabase opens the target database with the driver matching the
// descriptor kind.
func openDatabase(desc core.ConnectionDescriptor) (*sql.DB, error) {
	if desc.IsPostgres() {
		db, err := sql.Open("pgx", desc.URL())
		if err != nil {
			return nil, fmt.Errorf("opening postgres database: %w", err)
		}
		return db, nil
	}

	db, err := sql.Open("sqlite", desc.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// SQLite disables foreign keys by default; the schema relies on them.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling sqlite foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting sqlite busy timeout: %w", err)
	}
	return db, nil
}

// materializeMigrations copies the embedded SQL for one dialect into a
// working directory so gostgrator can glob it. Returns the dialect dir.
func materializeMigrations(baseDir, dialect string) (string, error) {
	src := "migrations/" + dialect
	dst := filepath.Join(baseDir, dialect)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", fmt.Errorf("creating migration dir %s: %w", dst, err)
	}

	entries, err := fs.ReadDir(migrationFS, src)
	if err != nil {
		return "", fmt.Errorf("reading embedded migrations: %w", err)
	}
	for _, entry := range entries {
		data, err := migrationFS.ReadFile(src + "/" + entry.Name())
		if err != nil {
			return "", fmt.Errorf("reading embedded migration %s: %w", entry.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(dst, entry.Name()), data, 0o644); err != nil {
			return "", fmt.Errorf("writing migration %s: %w", entry.Name(), err)
		}
	}
	return dst, nil
}

func scopedEnv(desc core.ConnectionDescriptor) []string {
	env := os.Environ()
	for k, v := range desc.Env() {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
