package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pressbox/pressbox/internal/core/compose"
	"github.com/pressbox/pressbox/internal/shell/wp"
)

// NewLogsCmd creates the logs command.
func NewLogsCmd() *cobra.Command {
	var tail string

	cmd := &cobra.Command{
		Use:   "logs <name> [service]",
		Short: "Show service logs",
		Long: `Dumps container logs for one service of an instance. The service
defaults to wordpress; db, phpmyadmin, and wpcli work too.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			service := compose.ServiceWordPress
			if len(args) == 2 {
				service = args[1]
			}

			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				out, err := app.orch.ServiceLogs(ctx, args[0], service, tail)
				if err != nil {
					return err
				}
				fmt.Print(out)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&tail, "tail", "100", "Number of log lines to show from the end")
	return cmd
}

// NewWPCmd creates the wp passthrough command.
func NewWPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wp <name> -- <args...>",
		Short: "Run WP-CLI in an instance",
		Long: `Runs an arbitrary WP-CLI command in the instance's cli container and
prints its output. Everything after -- goes to wp verbatim:

  pressbox wp my-blog -- plugin list --status=active`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				out, err := app.wp.Run(ctx, args[0], args[1:]...)
				if out != "" {
					fmt.Print(out)
				}
				if err != nil {
					// Propagate wp's own exit code and stderr
					var wpErr *wp.CommandError
					if errors.As(err, &wpErr) {
						if wpErr.Stderr != "" {
							fmt.Fprint(os.Stderr, wpErr.Stderr)
						}
						return &CommandError{
							Op:       "wp",
							Err:      err,
							ExitCode: wpErr.ExitCode,
						}
					}
					return err
				}
				return nil
			})
		},
	}

	// Flags after the instance name belong to wp, not to us
	cmd.Flags().SetInterspersed(false)
	return cmd
}
