package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"memosetup/bootstrap"
	"memosetup/container"
)

func outputAsJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func outputAsYAML(data interface{}) error {
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	return encoder.Encode(data)
}

// renderStructured emits data in whichever structured format was requested.
// JSON wins when both flags are set.
func renderStructured(data interface{}) error {
	if outputJSON {
		return outputAsJSON(data)
	}
	return outputAsYAML(data)
}

// renderRunReport prints the setup run summary. Structured output replaces
// the human-readable summary entirely.
func renderRunReport(report *bootstrap.RunReport) error {
	if report == nil {
		return nil
	}
	if outputJSON || outputYAML {
		return renderStructured(report)
	}
	if quiet {
		return nil
	}

	fmt.Println()
	headerColor.Println("SETUP SUMMARY")
	headerColor.Println(strings.Repeat("=", 60))
	printField("Run ID", report.RunID)
	printField("Backend", string(report.Backend))
	printField("Database URL", report.URL)
	if report.Migration != nil {
		if report.Migration.External {
			printField("Migrations", "external tool")
		} else if len(report.Migration.Applied) == 0 {
			printField("Migrations", "already up to date")
		} else {
			printField("Migrations", fmt.Sprintf("%d applied", len(report.Migration.Applied)))
		}
	}
	if report.Smoke != nil {
		printField("Smoke test", formatSmokeResult(report.Smoke.Passed, report.Smoke.Survived))
	}
	printField("Result", formatRunResult(report.Success()))
	fmt.Println(strings.Repeat("=", 60))
	return nil
}

func renderStatusTable(status setupStatus) {
	headerColor.Println("SMART MEMO BACKENDS")
	headerColor.Println(strings.Repeat("=", 60))

	printField("Container", fmt.Sprintf("%s (%s)", status.Container.Name, status.Container.Image))
	printField("Container status", formatContainerStatus(status.Container.Status))
	printField("PostgreSQL URL", status.Postgres.URL)
	printField("SQLite path", status.SQLite.Path)
	if status.SQLite.Exists {
		printField("SQLite database", "present")
	} else {
		printField("SQLite database", "not created")
	}

	fmt.Println(strings.Repeat("=", 60))
}

func printField(label, value string) {
	if value == "" {
		value = "-"
	}
	fmt.Printf("  %-18s %s\n", label+":", value)
}

func formatContainerStatus(status container.Status) string {
	switch status {
	case container.StatusRunning:
		return successColor.Sprint("running")
	case container.StatusStopped:
		return warningColor.Sprint("stopped")
	default:
		return "not created"
	}
}

func formatSmokeResult(passed, survived bool) string {
	if !passed {
		return errorColor.Sprint("failed")
	}
	if survived {
		return successColor.Sprint("passed (stayed up)")
	}
	return successColor.Sprint("passed (clean exit)")
}

func formatRunResult(success bool) string {
	if success {
		return successColor.Sprint("success")
	}
	return errorColor.Sprint("failed")
}
