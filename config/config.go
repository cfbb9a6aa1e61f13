// Package config loads the memosetup configuration from config.yaml,
// environment variables and defaults.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"memosetup/core"
)

// StartupMode defines how the bootstrapper handles non-fatal step failures.
type StartupMode string

const (
	// StartupModeStrict fails fast on any step error (default).
	StartupModeStrict StartupMode = "strict"
	// StartupModeGraceful keeps going past the smoke test on failure and
	// reports the degraded result. Fatal steps still abort.
	StartupModeGraceful StartupMode = "graceful"
)

// Config holds all configuration for the setup tool.
type Config struct {
	StartupMode StartupMode `mapstructure:"startup_mode"`

	Postgres struct {
		User     string `mapstructure:"user" validate:"required"`
		Password string `mapstructure:"password" validate:"required"`
		Host     string `mapstructure:"host" validate:"required"`
		Port     int    `mapstructure:"port" validate:"min=1,max=65535"`
		Database string `mapstructure:"database" validate:"required"`
	} `mapstructure:"postgres"`

	SQLite struct {
		Path string `mapstructure:"path" validate:"required"`
	} `mapstructure:"sqlite"`

	Container struct {
		// Name the database container is created with.
		Name string `mapstructure:"name" validate:"required"`
		// Image run for the container backend.
		Image string `mapstructure:"image" validate:"required"`
		// Runtime is the container runtime CLI binary.
		Runtime string `mapstructure:"runtime" validate:"required"`
	} `mapstructure:"container"`

	Readiness struct {
		// MaxWait bounds the whole readiness poll.
		MaxWait time.Duration `mapstructure:"max_wait" validate:"min=1s"`
		// Interval is the initial delay between connection attempts; each
		// retry doubles it up to MaxInterval.
		Interval    time.Duration `mapstructure:"interval" validate:"min=100ms"`
		MaxInterval time.Duration `mapstructure:"max_interval" validate:"min=100ms"`
	} `mapstructure:"readiness"`

	Migrator struct {
		// SchemaTable stores migration state in the target database.
		SchemaTable string `mapstructure:"schema_table" validate:"required"`
		// Dir is where embedded migrations are materialized before running.
		Dir string `mapstructure:"dir" validate:"required"`
		// Command, when set, runs an external migration tool in Workdir with
		// the scoped environment instead of the in-process runner.
		Command string   `mapstructure:"command"`
		Args    []string `mapstructure:"args"`
		Workdir string   `mapstructure:"workdir"`
	} `mapstructure:"migrator"`

	App struct {
		// Command is the application entry point run once as a smoke test.
		Command string   `mapstructure:"command" validate:"required"`
		Args    []string `mapstructure:"args"`
		// StartupProbe is how long the application must stay up (or exit
		// zero) for the smoke test to pass.
		StartupProbe time.Duration `mapstructure:"startup_probe" validate:"min=1s"`
	} `mapstructure:"app"`
}

// LoadConfig reads the configuration file, applies MEMOSETUP_* environment
// overrides and validates the result. An empty path searches for config.yaml
// in . and ./config; a missing file is fine, defaults and env vars apply.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, will use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.SQLite.Path = filepath.ToSlash(cfg.SQLite.Path)
	return &cfg, nil
}

// Validate checks structural constraints and mode values.
func (c *Config) Validate() error {
	if c.StartupMode == "" {
		c.StartupMode = StartupModeStrict
	}
	if c.StartupMode != StartupModeStrict && c.StartupMode != StartupModeGraceful {
		return fmt.Errorf("invalid startup_mode %q (expected strict or graceful)", c.StartupMode)
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Readiness.MaxInterval < c.Readiness.Interval {
		return fmt.Errorf("readiness.max_interval (%s) must not be below readiness.interval (%s)",
			c.Readiness.MaxInterval, c.Readiness.Interval)
	}
	return nil
}

// BackendDefaults converts the configured credentials into the descriptor
// defaults consumed by core.SelectBackend.
func (c *Config) BackendDefaults() core.BackendDefaults {
	return core.BackendDefaults{
		User:       c.Postgres.User,
		Password:   c.Postgres.Password,
		Host:       c.Postgres.Host,
		Port:       c.Postgres.Port,
		Database:   c.Postgres.Database,
		SQLitePath: c.SQLite.Path,
	}
}

func setDefaults() {
	viper.SetDefault("startup_mode", string(StartupModeStrict))

	viper.SetDefault("postgres.user", "postgres")
	viper.SetDefault("postgres.password", "mark42")
	// Use 127.0.0.1-resolvable localhost so the URL matches what the
	// application and migration tool expect.
	viper.SetDefault("postgres.host", "localhost")
	viper.SetDefault("postgres.port", 5432)
	viper.SetDefault("postgres.database", "memo")

	viper.SetDefault("sqlite.path", "./memo.db")

	viper.SetDefault("container.name", "smartmemo-postgres")
	viper.SetDefault("container.image", "postgres:15")
	viper.SetDefault("container.runtime", "docker")

	viper.SetDefault("readiness.max_wait", 30*time.Second)
	viper.SetDefault("readiness.interval", 500*time.Millisecond)
	viper.SetDefault("readiness.max_interval", 4*time.Second)

	viper.SetDefault("migrator.schema_table", "schemaversion")
	viper.SetDefault("migrator.dir", "./data/migrations")
	viper.SetDefault("migrator.command", "")
	viper.SetDefault("migrator.args", []string{})
	viper.SetDefault("migrator.workdir", "migration")

	viper.SetDefault("app.command", "./smartmemo")
	viper.SetDefault("app.args", []string{})
	viper.SetDefault("app.startup_probe", 10*time.Second)
}

func loadFromEnv() {
	viper.SetEnvPrefix("MEMOSETUP")
	viper.AutomaticEnv()

	_ = viper.BindEnv("startup_mode", "MEMOSETUP_STARTUP_MODE")
	_ = viper.BindEnv("postgres.password", "MEMOSETUP_POSTGRES_PASSWORD")
	_ = viper.BindEnv("postgres.database", "MEMOSETUP_POSTGRES_DATABASE")
	_ = viper.BindEnv("sqlite.path", "MEMOSETUP_SQLITE_PATH")
	_ = viper.BindEnv("container.name", "MEMOSETUP_CONTAINER_NAME")
	_ = viper.BindEnv("container.image", "MEMOSETUP_CONTAINER_IMAGE")
	_ = viper.BindEnv("container.runtime", "MEMOSETUP_CONTAINER_RUNTIME")
	_ = viper.BindEnv("app.command", "MEMOSETUP_APP_COMMAND")
}
