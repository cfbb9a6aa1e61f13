package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestConfig returns a valid Config for testing
func newTestConfig() Config {
	var cfg Config
	cfg.StartupMode = StartupModeStrict
	cfg.Postgres.User = "postgres"
	cfg.Postgres.Password = "mark42"
	cfg.Postgres.Host = "localhost"
	cfg.Postgres.Port = 5432
	cfg.Postgres.Database = "memo"
	cfg.SQLite.Path = "./memo.db"
	cfg.Container.Name = "smartmemo-postgres"
	cfg.Container.Image = "postgres:15"
	cfg.Container.Runtime = "docker"
	cfg.Readiness.MaxWait = 30 * time.Second
	cfg.Readiness.Interval = 500 * time.Millisecond
	cfg.Readiness.MaxInterval = 4 * time.Second
	cfg.Migrator.SchemaTable = "schemaversion"
	cfg.Migrator.Dir = "./data/migrations"
	cfg.App.Command = "./smartmemo"
	cfg.App.StartupProbe = 10 * time.Second
	return cfg
}

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, StartupModeStrict, cfg.StartupMode)
	assert.Equal(t, "postgres", cfg.Postgres.User)
	assert.Equal(t, "mark42", cfg.Postgres.Password)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "memo", cfg.Postgres.Database)
	assert.Equal(t, "./memo.db", cfg.SQLite.Path)
	assert.Equal(t, "smartmemo-postgres", cfg.Container.Name)
	assert.Equal(t, "postgres:15", cfg.Container.Image)
	assert.Equal(t, "docker", cfg.Container.Runtime)
	assert.Equal(t, 30*time.Second, cfg.Readiness.MaxWait)
	assert.Equal(t, "./smartmemo", cfg.App.Command)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("MEMOSETUP_POSTGRES_PASSWORD", "hunter2")
	t.Setenv("MEMOSETUP_CONTAINER_IMAGE", "postgres:16")
	t.Setenv("MEMOSETUP_SQLITE_PATH", "./other.db")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "hunter2", cfg.Postgres.Password)
	assert.Equal(t, "postgres:16", cfg.Container.Image)
	assert.Equal(t, "./other.db", cfg.SQLite.Path)
}

func TestLoadConfigExplicitFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "setup.yaml")
	content := "postgres:\n  database: othermemo\ncontainer:\n  name: custom-postgres\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "othermemo", cfg.Postgres.Database)
	assert.Equal(t, "custom-postgres", cfg.Container.Name)
	assert.Equal(t, "mark42", cfg.Postgres.Password, "unset keys keep their defaults")
}

func TestValidateRejectsBadStartupMode(t *testing.T) {
	cfg := newTestConfig()
	cfg.StartupMode = "yolo"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup_mode")
}

func TestValidateDefaultsEmptyStartupMode(t *testing.T) {
	cfg := newTestConfig()
	cfg.StartupMode = ""
	require.NoError(t, cfg.Validate())
	assert.Equal(t, StartupModeStrict, cfg.StartupMode)
}

func TestValidateRejectsMissingCredentials(t *testing.T) {
	cfg := newTestConfig()
	cfg.Postgres.Password = ""
	assert.Error(t, cfg.Validate())

	cfg = newTestConfig()
	cfg.Postgres.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = newTestConfig()
	cfg.Container.Image = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsInvertedReadinessIntervals(t *testing.T) {
	cfg := newTestConfig()
	cfg.Readiness.Interval = 5 * time.Second
	cfg.Readiness.MaxInterval = 1 * time.Second
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_interval")
}

func TestBackendDefaults(t *testing.T) {
	cfg := newTestConfig()
	defaults := cfg.BackendDefaults()
	assert.Equal(t, "postgres", defaults.User)
	assert.Equal(t, "mark42", defaults.Password)
	assert.Equal(t, "memo", defaults.Database)
	assert.Equal(t, "./memo.db", defaults.SQLitePath)
}
