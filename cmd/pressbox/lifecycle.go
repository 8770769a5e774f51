package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pressbox/pressbox/internal/shell/provision"
)

// NewStartCmd creates the start command.
func NewStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <name>",
		Short: "Start a stopped instance",
		Long:  `Brings an instance's containers back up and waits until the site answers.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				inst, err := app.provisioner.Start(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("✅ Instance %q is running at %s\n", inst.Name, inst.SiteURL())
				return nil
			})
		},
	}
}

// NewStopCmd creates the stop command.
func NewStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <name>",
		Short: "Stop a running instance",
		Long:  `Stops an instance's containers. Data and files stay; start brings the same site back.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				inst, err := app.provisioner.Stop(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("✅ Instance %q stopped\n", inst.Name)
				return nil
			})
		},
	}
}

// NewRemoveCmd creates the remove command.
func NewRemoveCmd() *cobra.Command {
	var (
		keepFiles bool
		all       bool
	)

	cmd := &cobra.Command{
		Use:   "remove [name]",
		Short: "Remove an instance",
		Long: `Removes an instance: containers, network, volumes, and the instance
directory. --keep-files leaves the directory (wp-content, compose file)
on disk. --all removes every instance in the workspace.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("--all does not take an instance name")
			}
			if !all && len(args) == 0 {
				return errors.New("requires an instance name or --all")
			}

			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				if all {
					if err := app.provisioner.RemoveAll(ctx); err != nil {
						return err
					}
					fmt.Println("✅ All instances removed")
					return nil
				}

				opts := provision.RemoveOptions{KeepFiles: keepFiles}
				if err := app.provisioner.Remove(ctx, args[0], opts); err != nil {
					return err
				}
				if keepFiles {
					fmt.Printf("✅ Instance %q removed, files kept in %s\n", args[0], app.ws.InstanceDir(args[0]))
				} else {
					fmt.Printf("✅ Instance %q removed\n", args[0])
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&keepFiles, "keep-files", false, "Keep the instance directory on disk")
	cmd.Flags().BoolVar(&all, "all", false, "Remove every instance")
	return cmd
}
