package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"memosetup/container"
)

// newContainerCmd creates the 'container' command group for managing the
// database container without running the full setup flow.
func newContainerCmd() *cobra.Command {
	containerCmd := &cobra.Command{
		Use:   "container",
		Short: "Manage the Smart Memo database container",
		Long:  "Start, stop and inspect the PostgreSQL container used by the containerized backend.",
	}

	containerCmd.AddCommand(newContainerStartCmd())
	containerCmd.AddCommand(newContainerStopCmd())
	containerCmd.AddCommand(newContainerStatusCmd())

	return containerCmd
}

func newContainerStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the database container",
		Long:  "Start the PostgreSQL container and wait until the server accepts connections.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			app, err := initApp()
			if err != nil {
				return err
			}

			desc, err := app.SelectBackend("1")
			if err != nil {
				return err
			}

			if err := runStep(" Starting database container...", func() error {
				_, stepErr := app.Provision(ctx, desc)
				return stepErr
			}); err != nil {
				return err
			}

			if err := runStep(" Waiting for the database...", func() error {
				return app.AwaitReady(ctx, desc)
			}); err != nil {
				return err
			}

			if !quiet {
				successColor.Printf("✓ Container %s is running, database at %s\n",
					app.Config.Container.Name, desc.RedactedURL())
			}
			return nil
		},
	}
}

func newContainerStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the database container",
		Long:  "Stop the PostgreSQL container. Stopping a missing container is not an error.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			app, err := initApp()
			if err != nil {
				return err
			}

			if err := app.Runtime.Stop(ctx, app.Config.Container.Name); err != nil {
				return err
			}

			if !quiet {
				successColor.Printf("✓ Container %s stopped\n", app.Config.Container.Name)
			}
			return nil
		},
	}
}

func newContainerStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the database container status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			app, err := initApp()
			if err != nil {
				return err
			}

			status, err := app.Runtime.Status(ctx, app.Config.Container.Name)
			if err != nil {
				return err
			}

			if outputJSON || outputYAML {
				return renderStructured(map[string]string{
					"name":   app.Config.Container.Name,
					"status": string(status),
				})
			}

			switch status {
			case container.StatusRunning:
				successColor.Printf("Container %s: running\n", app.Config.Container.Name)
			case container.StatusStopped:
				warningColor.Printf("Container %s: stopped\n", app.Config.Container.Name)
			default:
				fmt.Printf("Container %s: not created\n", app.Config.Container.Name)
			}
			return nil
		},
	}
}
