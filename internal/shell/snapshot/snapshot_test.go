package snapshot

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressbox/pressbox/internal/core/instance"
	"github.com/pressbox/pressbox/internal/shell/workspace"
)

// =============================================================================
// Manager Tests
// =============================================================================

// fakeExporter plays the CLI sidecar: "wp db export" materializes a dump
// file on the host side of the bind mount.
type fakeExporter struct {
	ws    *workspace.Workspace
	err   error
	calls int
}

func (f *fakeExporter) DBExport(ctx context.Context, instanceName, containerPath string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	hostPath := filepath.Join(f.ws.ContentDir(instanceName), filepath.Base(containerPath))
	return os.WriteFile(hostPath, []byte("-- dump of "+instanceName), 0o644)
}

func setupManager(t *testing.T) (*Manager, *workspace.Workspace, *fakeExporter) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ws := workspace.New(t.TempDir(), logger)
	require.NoError(t, ws.EnsureLayout())

	exporter := &fakeExporter{ws: ws}
	catalog := setupTestCatalog(t)
	return NewManager(ws, exporter, catalog, logger), ws, exporter
}

func seedSite(t *testing.T, ws *workspace.Workspace, name string) {
	t.Helper()
	dir, err := ws.CreateInstanceDir(name)
	require.NoError(t, err)
	inst, err := instance.New(name, 8080, 8180, dir)
	require.NoError(t, err)
	require.NoError(t, ws.SaveInstance(inst))

	themeDir := filepath.Join(ws.ContentDir(name), "themes", "custom")
	require.NoError(t, os.MkdirAll(themeDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(themeDir, "style.css"), []byte("body {}"), 0o644))
}

func TestManagerTake_DefaultOutput(t *testing.T) {
	m, ws, exporter := setupManager(t)
	seedSite(t, ws, "blog")

	snap, err := m.Take(context.Background(), "blog", "")
	require.NoError(t, err)

	assert.Equal(t, "blog", snap.InstanceName)
	assert.Equal(t, "http://localhost:8080", snap.SiteURL)
	assert.NotEmpty(t, snap.ID)
	assert.Greater(t, snap.SizeBytes, int64(0))
	assert.Equal(t, 1, exporter.calls)

	// Archive lands in the workspace snapshots directory
	assert.Equal(t, ws.SnapshotsDir(), filepath.Dir(snap.ArchivePath))
	assert.True(t, strings.HasPrefix(filepath.Base(snap.ArchivePath), "blog-"))
	_, err = os.Stat(snap.ArchivePath)
	require.NoError(t, err)

	// The staged dump is cleaned off the bind mount afterwards
	_, err = os.Stat(filepath.Join(ws.ContentDir("blog"), "database.sql"))
	assert.True(t, os.IsNotExist(err))

	// Cataloged
	snaps, err := m.List(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, snap.ID, snaps[0].ID)
}

func TestManagerTake_ExplicitOutput(t *testing.T) {
	m, ws, _ := setupManager(t)
	seedSite(t, ws, "blog")
	out := filepath.Join(t.TempDir(), "exports", "blog.tar.gz")

	snap, err := m.Take(context.Background(), "blog", out)
	require.NoError(t, err)
	assert.Equal(t, out, snap.ArchivePath)

	// The archive restores cleanly
	dest := t.TempDir()
	manifest, err := Unpack(out, dest)
	require.NoError(t, err)
	assert.Equal(t, "blog", manifest.InstanceName)
	assert.Equal(t, 8080, manifest.PrimaryPort)

	dump, err := os.ReadFile(filepath.Join(dest, "database.sql"))
	require.NoError(t, err)
	assert.Equal(t, "-- dump of blog", string(dump))

	css, err := os.ReadFile(filepath.Join(dest, "themes", "custom", "style.css"))
	require.NoError(t, err)
	assert.Equal(t, "body {}", string(css))
}

func TestManagerTake_InstanceNotFound(t *testing.T) {
	m, _, exporter := setupManager(t)

	_, err := m.Take(context.Background(), "ghost", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, workspace.ErrInstanceNotFound)
	assert.Zero(t, exporter.calls)
}

func TestManagerTake_ExportFailure(t *testing.T) {
	m, ws, exporter := setupManager(t)
	seedSite(t, ws, "blog")
	exporter.err = assert.AnError

	_, err := m.Take(context.Background(), "blog", "")
	require.Error(t, err)

	// Nothing cataloged, nothing left on disk
	snaps, listErr := m.List(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, snaps)
}

func TestManagerDelete(t *testing.T) {
	m, ws, _ := setupManager(t)
	seedSite(t, ws, "blog")

	snap, err := m.Take(context.Background(), "blog", "")
	require.NoError(t, err)

	require.NoError(t, m.Delete(context.Background(), snap.ID))

	snaps, err := m.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snaps)

	_, err = os.Stat(snap.ArchivePath)
	assert.True(t, os.IsNotExist(err))
}

func TestManagerDelete_NotFound(t *testing.T) {
	m, _, _ := setupManager(t)

	err := m.Delete(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}
