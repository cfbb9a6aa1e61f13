// Package container drives the local container runtime CLI to provision the
// PostgreSQL database container.
package container

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"memosetup/core"
)

// Runner executes a runtime CLI command and returns its output. The exec
// implementation is swapped for a fake in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Status describes the database container as seen by the runtime.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusAbsent  Status = "absent"
)

// StartSpec describes the PostgreSQL container to launch.
type StartSpec struct {
	Name     string
	Image    string
	Port     int
	Password string
	Database string
}

// Runtime wraps a container runtime CLI (docker by default).
type Runtime struct {
	binary string
	runner Runner
	sugar  *zap.SugaredLogger
}

// NewRuntime creates a runtime adapter for the given CLI binary.
func NewRuntime(binary string, sugar *zap.SugaredLogger) *Runtime {
	return &Runtime{binary: binary, runner: execRunner{}, sugar: sugar}
}

// NewRuntimeWithRunner is used by tests to inject a fake command runner.
func NewRuntimeWithRunner(binary string, runner Runner, sugar *zap.SugaredLogger) *Runtime {
	return &Runtime{binary: binary, runner: runner, sugar: sugar}
}

// Available probes the runtime daemon. A failure is fatal for the container
// backend since no database can be provisioned without it.
func (r *Runtime) Available(ctx context.Context) error {
	if _, stderr, err := r.runner.Run(ctx, r.binary, "version"); err != nil {
		return fmt.Errorf("%w: %s version: %v: %s",
			core.ErrRuntimeUnavailable, r.binary, err, strings.TrimSpace(stderr))
	}
	return nil
}

// StartPostgres launches the database container described by spec. An
// already-running container with the same name is reused; a stopped one is
// restarted rather than recreated so its data volume survives.
func (r *Runtime) StartPostgres(ctx context.Context, spec StartSpec) error {
	switch status, err := r.Status(ctx, spec.Name); {
	case err != nil:
		return err
	case status == StatusRunning:
		r.sugar.Infow("Database container already running", "name", spec.Name)
		return nil
	case status == StatusStopped:
		r.sugar.Infow("Restarting stopped database container", "name", spec.Name)
		if _, stderr, err := r.runner.Run(ctx, r.binary, "start", spec.Name); err != nil {
			return fmt.Errorf("%w: %s start %s: %v: %s",
				core.ErrContainerStartFailed, r.binary, spec.Name, err, strings.TrimSpace(stderr))
		}
		return nil
	}

	args := []string{
		"run", "-d",
		"--name", spec.Name,
		"-e", fmt.Sprintf("POSTGRES_PASSWORD=%s", spec.Password),
		"-e", fmt.Sprintf("POSTGRES_DB=%s", spec.Database),
		"-p", fmt.Sprintf("%d:5432", spec.Port),
		spec.Image,
	}

	r.sugar.Infow("Starting database container",
		"name", spec.Name,
		"image", spec.Image,
		"port", spec.Port)

	if _, stderr, err := r.runner.Run(ctx, r.binary, args...); err != nil {
		return fmt.Errorf("%w: %s run %s: %v: %s",
			core.ErrContainerStartFailed, r.binary, spec.Image, err, strings.TrimSpace(stderr))
	}
	return nil
}

// Stop stops the named container. Stopping an absent container is not an
// error so `container stop` stays idempotent.
func (r *Runtime) Stop(ctx context.Context, name string) error {
	status, err := r.Status(ctx, name)
	if err != nil {
		return err
	}
	if status == StatusAbsent {
		return nil
	}
	if _, stderr, err := r.runner.Run(ctx, r.binary, "stop", name); err != nil {
		return fmt.Errorf("stopping container %s: %v: %s", name, err, strings.TrimSpace(stderr))
	}
	return nil
}

// Status inspects the named container.
func (r *Runtime) Status(ctx context.Context, name string) (Status, error) {
	stdout, _, err := r.runner.Run(ctx, r.binary,
		"inspect", "--format", "{{.State.Running}}", name)
	if err != nil {
		// Inspect fails for unknown names on every supported runtime.
		return StatusAbsent, nil
	}
	if strings.TrimSpace(stdout) == "true" {
		return StatusRunning, nil
	}
	return StatusStopped, nil
}
