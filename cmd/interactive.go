package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// promptBackendChoice shows the backend menu and reads one line of input.
// Validation is left to the backend selector so the error path is the same
// for interactive and flag-driven runs.
func promptBackendChoice(reader *bufio.Reader) string {
	fmt.Println()
	headerColor.Println("Smart Memo setup")
	fmt.Println()
	fmt.Println("Database backends:")
	fmt.Println("  1. Containerized PostgreSQL - runs postgres:15 in Docker (recommended)")
	fmt.Println("  2. SQLite                   - single local file, no server needed")
	fmt.Println("  3. Local PostgreSQL         - uses a server already running on this machine")
	fmt.Println()

	return promptString(reader, "Choose a backend (1-3)", true, "1")
}

// promptString prompts for a string input.
func promptString(reader *bufio.Reader, prompt string, required bool, defaultValue string) string {
	for {
		if defaultValue != "" {
			fmt.Printf("%s [%s]: ", prompt, defaultValue)
		} else if required {
			fmt.Printf("%s (required): ", prompt)
		} else {
			fmt.Printf("%s: ", prompt)
		}

		input, err := reader.ReadString('\n')
		if err != nil {
			errorColor.Printf("Error reading input: %v\n", err)
			return defaultValue
		}
		input = strings.TrimSpace(input)

		if input == "" {
			if defaultValue != "" {
				return defaultValue
			}
			if !required {
				return ""
			}
			errorColor.Println("This field is required")
			continue
		}

		return input
	}
}

// promptYesNo prompts for a yes/no response.
func promptYesNo(reader *bufio.Reader, prompt string, defaultValue bool) bool {
	defaultStr := "N"
	if defaultValue {
		defaultStr = "Y"
	}

	for {
		fmt.Printf("%s [y/N] (default: %s): ", prompt, defaultStr)
		input, err := reader.ReadString('\n')
		if err != nil {
			errorColor.Printf("Error reading input: %v\n", err)
			return defaultValue
		}
		input = strings.TrimSpace(strings.ToLower(input))

		if input == "" {
			return defaultValue
		}

		switch input {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}

		errorColor.Println("Please answer y or n")
	}
}

func stdinReader() *bufio.Reader {
	return bufio.NewReader(os.Stdin)
}
