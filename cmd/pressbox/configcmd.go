package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command.
func NewConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show effective configuration",
		Long: `Prints the configuration the other commands run with, after merging
defaults, the config file, and PRESSBOX_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return &CommandError{
					Op:       "config",
					Err:      err,
					ExitCode: ExitFailure,
				}
			}

			dockerHost := cfg.Docker.Host
			if dockerHost == "" {
				dockerHost = "(from environment)"
			}

			fmt.Println("Workspace:")
			fmt.Printf("  Root:        %s\n", cfg.Workspace.Root)
			fmt.Println("Ports:")
			fmt.Printf("  Range:       %d-%d\n", cfg.Ports.RangeStart, cfg.Ports.RangeEnd)
			fmt.Println("Docker:")
			fmt.Printf("  Host:        %s\n", dockerHost)
			fmt.Println("Images:")
			fmt.Printf("  WordPress:   %s\n", cfg.Images.WordPress)
			fmt.Printf("  MySQL:       %s\n", cfg.Images.MySQL)
			fmt.Printf("  phpMyAdmin:  %s\n", cfg.Images.PHPMyAdmin)
			fmt.Printf("  CLI:         %s\n", cfg.Images.CLI)
			fmt.Println("Readiness:")
			fmt.Printf("  Grace:       %s\n", cfg.Readiness.Grace)
			fmt.Printf("  Containers:  %s (poll %s)\n", cfg.Readiness.ContainersTimeout, cfg.Readiness.ContainersInterval)
			fmt.Printf("  Database:    %s (poll %s)\n", cfg.Readiness.DatabaseTimeout, cfg.Readiness.DatabaseInterval)
			fmt.Printf("  Installed:   %s (poll %s)\n", cfg.Readiness.InstalledTimeout, cfg.Readiness.InstalledInterval)
			fmt.Printf("  HTTP:        %d attempts, %s apart\n", cfg.Readiness.HTTPAttempts, cfg.Readiness.HTTPInterval)
			fmt.Println("Log:")
			fmt.Printf("  Level:       %s\n", cfg.Log.Level)
			fmt.Printf("  Format:      %s\n", cfg.Log.Format)

			return nil
		},
	}
}
