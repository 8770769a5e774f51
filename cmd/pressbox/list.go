package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pressbox/pressbox/internal/core/instance"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all instances",
		Long:  `Lists all instances with their live status and ports.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				statuses, err := app.provisioner.List(ctx)
				if err != nil {
					return err
				}

				if len(statuses) == 0 {
					fmt.Println("No instances found. Create one with: pressbox create <name>")
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tSTATUS\tPORT\tADMIN\tDIRECTORY")
				fmt.Fprintln(w, "----\t------\t----\t-----\t---------")

				for _, st := range statuses {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
						st.Instance.Name,
						colorStatus(st.Live),
						st.Instance.PrimaryPort,
						st.Instance.AdminPort,
						st.Instance.Dir,
					)
				}

				return w.Flush()
			})
		},
	}
}

// NewInfoCmd creates the info command.
func NewInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Show instance details",
		Long:  `Shows one instance in detail: status, URLs, ports, and container state.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				st, err := app.provisioner.Info(ctx, args[0])
				if err != nil {
					return err
				}
				inst := st.Instance

				fmt.Printf("Name:       %s\n", inst.Name)
				fmt.Printf("Status:     %s\n", colorStatus(st.Live))
				fmt.Printf("Site:       %s\n", inst.SiteURL())
				fmt.Printf("Admin:      %s\n", inst.AdminURL())
				fmt.Printf("phpMyAdmin: %s\n", inst.DBAdminURL())
				fmt.Printf("Directory:  %s\n", inst.Dir)
				fmt.Printf("Created:    %s\n", inst.CreatedAt.Format("2006-01-02 15:04:05"))
				if inst.ErrorMessage != "" {
					fmt.Printf("Error:      %s\n", inst.ErrorMessage)
				}

				if len(st.Services) > 0 {
					fmt.Println()
					fmt.Println("Services:")
					for _, svc := range st.Services {
						if svc.Health != "" {
							fmt.Printf("  %-12s %s (%s)\n", svc.Service, svc.Status, svc.Health)
						} else {
							fmt.Printf("  %-12s %s\n", svc.Service, svc.Status)
						}
					}
				}

				return nil
			})
		},
	}
}

// colorStatus renders an instance status with the usual traffic colors.
func colorStatus(s instance.Status) string {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	switch s {
	case instance.StatusReady:
		return green(string(s))
	case instance.StatusProvisioning, instance.StatusStopped:
		return yellow(string(s))
	case instance.StatusFailed:
		return red(string(s))
	case instance.StatusRemoved:
		return red(string(s))
	default:
		return string(s)
	}
}
