package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pressbox/pressbox/internal/shell/snapshot"
)

// NewSnapshotCmd creates the snapshot command.
func NewSnapshotCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "snapshot <name>",
		Short: "Snapshot an instance",
		Long: `Dumps an instance's database and wp-content into a portable tar.gz
archive and records it in the snapshot catalog. The archive restores
with "pressbox import --archive".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				snap, err := app.snapshots.Take(ctx, args[0], output)
				if err != nil {
					return err
				}
				fmt.Printf("✅ Snapshot %s written\n\n", shortID(snap.ID))
				fmt.Printf("  Archive: %s\n", snap.ArchivePath)
				fmt.Printf("  Size:    %s\n", humanSize(snap.SizeBytes))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Archive path (defaults into the workspace snapshots directory)")
	return cmd
}

// NewSnapshotsCmd creates the snapshots command.
func NewSnapshotsCmd() *cobra.Command {
	var instanceName string

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List snapshots",
		Long:  `Lists recorded snapshots, newest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				snaps, err := listSnapshots(ctx, app, instanceName)
				if err != nil {
					return err
				}

				if len(snaps) == 0 {
					fmt.Println("No snapshots found. Take one with: pressbox snapshot <name>")
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tINSTANCE\tSIZE\tCREATED\tARCHIVE")
				fmt.Fprintln(w, "--\t--------\t----\t-------\t-------")
				for _, s := range snaps {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						shortID(s.ID),
						s.InstanceName,
						humanSize(s.SizeBytes),
						s.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						s.ArchivePath,
					)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&instanceName, "instance", "", "Only show snapshots of one instance")
	cmd.AddCommand(newSnapshotsDeleteCmd())
	return cmd
}

func newSnapshotsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot",
		Long:  `Deletes a snapshot's archive and its catalog entry. Accepts the full or short ID.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				id, err := resolveSnapshotID(ctx, app, args[0])
				if err != nil {
					return err
				}
				if err := app.snapshots.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Printf("✅ Snapshot %s deleted\n", shortID(id))
				return nil
			})
		},
	}
}

func listSnapshots(ctx context.Context, app *App, instanceName string) ([]snapshot.Snapshot, error) {
	if instanceName != "" {
		return app.snapshots.ListByInstance(ctx, instanceName)
	}
	return app.snapshots.List(ctx)
}

// resolveSnapshotID expands a short ID prefix to the full catalog ID.
func resolveSnapshotID(ctx context.Context, app *App, id string) (string, error) {
	snaps, err := app.snapshots.List(ctx)
	if err != nil {
		return "", err
	}

	var match string
	for _, s := range snaps {
		if s.ID == id {
			return id, nil
		}
		if len(id) >= 8 && strings.HasPrefix(s.ID, id) {
			if match != "" {
				return "", fmt.Errorf("snapshot id %q is ambiguous", id)
			}
			match = s.ID
		}
	}
	if match == "" {
		return id, nil // let the catalog report not-found
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func humanSize(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kb)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
