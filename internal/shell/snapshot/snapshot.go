// Package snapshot exports instances to portable tar.gz archives and keeps
// a SQLite catalog of everything exported. An archive carries the database
// dump, the wp-content tree and a manifest; import workflows restore from
// the same format.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pressbox/pressbox/internal/shell/workspace"
	"github.com/pressbox/pressbox/internal/shell/wp"
)

// =============================================================================
// Snapshot
// =============================================================================

// Snapshot is one archived export of an instance.
type Snapshot struct {
	ID           string
	InstanceName string
	ArchivePath  string
	SizeBytes    int64
	SiteURL      string
	CreatedAt    time.Time
}

// Exporter is the WP-CLI slice the snapshot workflow needs. The dump is
// written inside the container to a path under wp-content so the bind
// mount carries it to the host.
type Exporter interface {
	DBExport(ctx context.Context, instanceName, containerPath string) error
}

// =============================================================================
// Manager
// =============================================================================

// Manager takes snapshots of instances and records them in the catalog.
type Manager struct {
	ws      *workspace.Workspace
	site    Exporter
	catalog *Catalog
	logger  *slog.Logger
}

// NewManager creates a snapshot manager.
func NewManager(ws *workspace.Workspace, site Exporter, catalog *Catalog, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		ws:      ws,
		site:    site,
		catalog: catalog,
		logger:  logger,
	}
}

// Take snapshots a running instance: dumps its database through the CLI
// sidecar, archives the dump with wp-content and a manifest, and records
// the archive in the catalog. An empty outputPath puts the archive in the
// workspace snapshots directory under a timestamped name.
func (m *Manager) Take(ctx context.Context, instanceName, outputPath string) (*Snapshot, error) {
	inst, err := m.ws.LoadInstance(instanceName)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", instanceName, err)
	}

	contentDir := m.ws.ContentDir(instanceName)
	hostDump := filepath.Join(contentDir, dumpName)

	// The sidecar writes the dump into wp-content; the bind mount makes it
	// appear at hostDump. Requires the stack to be running.
	if err := m.site.DBExport(ctx, instanceName, wp.ContentMount+"/"+dumpName); err != nil {
		return nil, fmt.Errorf("snapshot %s: database export failed: %w", instanceName, err)
	}
	defer os.Remove(hostDump)

	now := time.Now().UTC()
	if outputPath == "" {
		outputPath = filepath.Join(m.ws.SnapshotsDir(),
			fmt.Sprintf("%s-%s.tar.gz", instanceName, now.Format("20060102-150405")))
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", instanceName, err)
	}

	manifest := Manifest{
		InstanceName: inst.Name,
		SiteURL:      inst.SiteURL(),
		PrimaryPort:  inst.PrimaryPort,
		AdminPort:    inst.AdminPort,
		CreatedAt:    now,
	}
	if err := Pack(outputPath, manifest, contentDir); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", instanceName, err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", instanceName, err)
	}

	snap := &Snapshot{
		ID:           uuid.New().String(),
		InstanceName: inst.Name,
		ArchivePath:  outputPath,
		SizeBytes:    info.Size(),
		SiteURL:      inst.SiteURL(),
		CreatedAt:    now,
	}
	if err := m.catalog.Insert(ctx, snap); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", instanceName, err)
	}

	m.logger.Info("snapshot written",
		"instance", instanceName,
		"archive", outputPath,
		"size_bytes", snap.SizeBytes,
	)
	return snap, nil
}

// List returns all cataloged snapshots, newest first.
func (m *Manager) List(ctx context.Context) ([]Snapshot, error) {
	return m.catalog.List(ctx)
}

// ListByInstance returns the cataloged snapshots of one instance.
func (m *Manager) ListByInstance(ctx context.Context, instanceName string) ([]Snapshot, error) {
	return m.catalog.ListByInstance(ctx, instanceName)
}

// Delete removes a snapshot from the catalog and deletes its archive file.
// A missing archive file is not an error; the catalog row is authoritative.
func (m *Manager) Delete(ctx context.Context, id string) error {
	snap, err := m.catalog.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := m.catalog.Delete(ctx, id); err != nil {
		return err
	}
	if err := os.Remove(snap.ArchivePath); err != nil && !os.IsNotExist(err) {
		m.logger.Warn("snapshot archive not removed", "id", id, "archive", snap.ArchivePath, "error", err)
	}
	return nil
}

// Close closes the catalog.
func (m *Manager) Close() error {
	return m.catalog.Close()
}
