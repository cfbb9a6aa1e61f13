package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"memosetup/container"
	"memosetup/core"
)

// setupStatus is the aggregate state shown by 'memosetup status'.
type setupStatus struct {
	Container struct {
		Name   string           `json:"name" yaml:"name"`
		Image  string           `json:"image" yaml:"image"`
		Status container.Status `json:"status" yaml:"status"`
	} `json:"container" yaml:"container"`
	Postgres struct {
		URL string `json:"url" yaml:"url"`
	} `json:"postgres" yaml:"postgres"`
	SQLite struct {
		Path   string `json:"path" yaml:"path"`
		Exists bool   `json:"exists" yaml:"exists"`
	} `json:"sqlite" yaml:"sqlite"`
}

// newStatusCmd creates the 'status' subcommand.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of all configured backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			app, err := initApp()
			if err != nil {
				return err
			}

			var status setupStatus
			status.Container.Name = app.Config.Container.Name
			status.Container.Image = app.Config.Container.Image

			containerStatus, err := app.Runtime.Status(ctx, app.Config.Container.Name)
			if err != nil {
				return err
			}
			status.Container.Status = containerStatus

			pgDesc, err := core.SelectBackend("3", app.Config.BackendDefaults())
			if err != nil {
				return err
			}
			status.Postgres.URL = pgDesc.RedactedURL()

			status.SQLite.Path = app.Config.SQLite.Path
			if _, statErr := os.Stat(app.Config.SQLite.Path); statErr == nil {
				status.SQLite.Exists = true
			}

			if outputJSON || outputYAML {
				return renderStructured(status)
			}

			renderStatusTable(status)
			return nil
		},
	}
}
