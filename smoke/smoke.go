// Package smoke runs the application entry point once to confirm it starts
// against the provisioned database.
package smoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"memosetup/core"
)

// Options configures the smoke test.
type Options struct {
	// Command is the application entry point; Args are passed through.
	Command string
	Args    []string
	// StartupProbe is how long the application must stay up (or exit zero)
	// for the test to pass. The application is a server, so surviving the
	// probe window counts as a successful start.
	StartupProbe time.Duration
}

// Report is the smoke-test verdict with the evidence needed to debug a
// failed start.
type Report struct {
	RunID    string        `json:"run_id" yaml:"run_id"`
	Command  string        `json:"command" yaml:"command"`
	Passed   bool          `json:"passed" yaml:"passed"`
	ExitCode int           `json:"exit_code" yaml:"exit_code"`
	// Survived is true when the process outlived the startup probe and was
	// then stopped by the harness.
	Survived bool          `json:"survived" yaml:"survived"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Output   string        `json:"output,omitempty" yaml:"output,omitempty"`
}

// Run executes the application once with the connection environment scoped
// to that child process. A non-zero exit inside the probe window fails with
// core.ErrApplicationStartFailed; the report is returned in both cases.
func Run(ctx context.Context, desc core.ConnectionDescriptor, opts Options, sugar *zap.SugaredLogger) (*Report, error) {
	report := &Report{
		RunID:   uuid.NewString(),
		Command: opts.Command,
	}

	cmd := exec.CommandContext(ctx, opts.Command, opts.Args...)
	cmd.Env = scopedEnv(desc)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	sugar.Infow("Starting application smoke test",
		"run_id", report.RunID,
		"command", opts.Command,
		"probe", opts.StartupProbe)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		report.Output = output.String()
		report.ExitCode = -1
		return report, fmt.Errorf("%w: starting %s: %v", core.ErrApplicationStartFailed, opts.Command, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		report.Duration = time.Since(start)
		report.Output = output.String()
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				report.ExitCode = exitErr.ExitCode()
			} else {
				report.ExitCode = -1
			}
			return report, fmt.Errorf("%w: %s exited with code %d", core.ErrApplicationStartFailed, opts.Command, report.ExitCode)
		}
		report.Passed = true
		return report, nil

	case <-time.After(opts.StartupProbe):
		// Still up after the probe window: the server started. Stop it so
		// the setup run leaves nothing behind.
		report.Survived = true
		report.Passed = true
		stopProcess(cmd, done)
		report.Duration = time.Since(start)
		report.Output = output.String()
		sugar.Infow("Application survived startup probe",
			"run_id", report.RunID,
			"probe", opts.StartupProbe)
		return report, nil
	}
}

// stopProcess asks the application to terminate and kills it if it does not
// comply within a short grace period.
func stopProcess(cmd *exec.Cmd, done chan error) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		_ = cmd.Process.Kill()
		<-done
	}
}

func scopedEnv(desc core.ConnectionDescriptor) []string {
	env := os.Environ()
	for k, v := range desc.Env() {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
