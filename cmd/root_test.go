package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"memosetup/bootstrap"
	"memosetup/container"
	"memosetup/core"
)

// TestNewRootCmd tests the creation of the root command
func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	assert.NotNil(t, cmd)
	assert.Equal(t, "memosetup", cmd.Use)
	assert.True(t, len(cmd.Commands()) > 0, "Should have subcommands")
}

// TestRootCommandStructure tests the command hierarchy
func TestRootCommandStructure(t *testing.T) {
	cmd := NewRootCmd()

	expectedCommands := []string{"up", "container", "migrate", "smoke", "status"}

	actualCommands := make(map[string]bool)
	for _, subCmd := range cmd.Commands() {
		actualCommands[subCmd.Name()] = true
	}

	for _, expected := range expectedCommands {
		assert.True(t, actualCommands[expected], "Missing command: %s", expected)
	}
}

// TestRootCommandFlags tests persistent flags
func TestRootCommandFlags(t *testing.T) {
	cmd := NewRootCmd()

	assert.NotNil(t, cmd.PersistentFlags().Lookup("json"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("yaml"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("no-color"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("quiet"))
}

// TestBackendFlag tests that every backend-scoped command accepts --backend
func TestBackendFlag(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{"up", "migrate", "smoke"} {
		sub := findCommand(cmd, name)
		require.NotNil(t, sub, "Missing command: %s", name)
		assert.NotNil(t, sub.Flags().Lookup("backend"), "Missing --backend on %s", name)
	}
}

// TestContainerSubcommands tests the container command group
func TestContainerSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	containerCmd := findCommand(cmd, "container")
	require.NotNil(t, containerCmd)

	expected := []string{"start", "stop", "status"}
	actual := make(map[string]bool)
	for _, subCmd := range containerCmd.Commands() {
		actual[subCmd.Name()] = true
	}
	for _, name := range expected {
		assert.True(t, actual[name], "Missing container subcommand: %s", name)
	}
}

// TestOutputAsJSON tests JSON output formatting
func TestOutputAsJSON(t *testing.T) {
	report := &bootstrap.RunReport{
		RunID:   uuid.New().String(),
		Backend: core.BackendSQLite,
		URL:     "sqlite://./memo.db?mode=rwc",
		States:  []bootstrap.State{bootstrap.StateStart, bootstrap.StateDone},
	}

	output := captureStdout(t, func() {
		require.NoError(t, outputAsJSON(report))
	})

	var parsed bootstrap.RunReport
	require.NoError(t, json.Unmarshal([]byte(output), &parsed))
	assert.Equal(t, report.RunID, parsed.RunID)
	assert.Equal(t, report.Backend, parsed.Backend)
}

// TestOutputAsYAML tests YAML output formatting
func TestOutputAsYAML(t *testing.T) {
	status := setupStatus{}
	status.Container.Name = "smartmemo-postgres"
	status.Container.Image = "postgres:15"
	status.Container.Status = container.StatusAbsent

	output := captureStdout(t, func() {
		require.NoError(t, outputAsYAML(status))
	})

	var parsed setupStatus
	require.NoError(t, yaml.Unmarshal([]byte(output), &parsed))
	assert.Equal(t, "smartmemo-postgres", parsed.Container.Name)
	assert.Equal(t, container.StatusAbsent, parsed.Container.Status)
}

// TestRenderRunReportNil tests that a nil report renders nothing
func TestRenderRunReportNil(t *testing.T) {
	assert.NoError(t, renderRunReport(nil))
}

// TestFormatSmokeResult tests smoke result formatting
func TestFormatSmokeResult(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	assert.Equal(t, "failed", formatSmokeResult(false, false))
	assert.Equal(t, "passed (stayed up)", formatSmokeResult(true, true))
	assert.Equal(t, "passed (clean exit)", formatSmokeResult(true, false))
}

// TestFormatContainerStatus tests container status formatting
func TestFormatContainerStatus(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	assert.Equal(t, "running", formatContainerStatus(container.StatusRunning))
	assert.Equal(t, "stopped", formatContainerStatus(container.StatusStopped))
	assert.Equal(t, "not created", formatContainerStatus(container.StatusAbsent))
}

// TestPromptString tests string prompting with defaults
func TestPromptString(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		required     bool
		defaultValue string
		want         string
	}{
		{"explicit value", "2\n", true, "1", "2"},
		{"default on empty", "\n", true, "1", "1"},
		{"optional empty", "\n", false, "", ""},
		{"trims whitespace", "  3  \n", true, "", "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := bufio.NewReader(strings.NewReader(tt.input))
			got := promptString(reader, "Choose", tt.required, tt.defaultValue)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestPromptYesNo tests yes/no prompting
func TestPromptYesNo(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		defaultValue bool
		want         bool
	}{
		{"yes", "y\n", false, true},
		{"no", "n\n", true, false},
		{"default on empty", "\n", true, true},
		{"retry until valid", "maybe\nyes\n", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := bufio.NewReader(strings.NewReader(tt.input))
			got := promptYesNo(reader, "Continue?", tt.defaultValue)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestPromptBackendChoice tests the menu prompt
func TestPromptBackendChoice(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("2\n"))
	output := captureStdout(t, func() {
		assert.Equal(t, "2", promptBackendChoice(reader))
	})

	assert.Contains(t, output, "1. Containerized PostgreSQL")
	assert.Contains(t, output, "2. SQLite")
	assert.Contains(t, output, "3. Local PostgreSQL")
}

func findCommand(root *cobra.Command, name string) *cobra.Command {
	for _, cmd := range root.Commands() {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}
