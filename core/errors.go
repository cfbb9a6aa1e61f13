package core

import "errors"

// Setup failure taxonomy. InvalidChoice, RuntimeUnavailable,
// ContainerStartFailed and MigrationFailed abort the run with a non-zero
// exit. ApplicationStartFailed is a smoke-test verdict: it is reported with
// the captured output and propagated to the final exit code, but the run
// summary still prints so the operator can see which steps succeeded.
var (
	ErrInvalidChoice          = errors.New("invalid backend choice")
	ErrRuntimeUnavailable     = errors.New("container runtime unavailable")
	ErrContainerStartFailed   = errors.New("database container start failed")
	ErrMigrationFailed        = errors.New("database migration failed")
	ErrApplicationStartFailed = errors.New("application smoke test failed")
)
