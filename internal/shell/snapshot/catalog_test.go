package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func setupTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		catalog.Close()
	})
	return catalog
}

func testSnapshot(instanceName string, createdAt time.Time) *Snapshot {
	return &Snapshot{
		ID:           uuid.New().String(),
		InstanceName: instanceName,
		ArchivePath:  "/tmp/" + instanceName + ".tar.gz",
		SizeBytes:    4096,
		SiteURL:      "http://localhost:8080",
		CreatedAt:    createdAt.UTC().Truncate(time.Second),
	}
}

// =============================================================================
// Catalog CRUD Tests
// =============================================================================

func TestCatalog_InsertAndGet(t *testing.T) {
	catalog := setupTestCatalog(t)
	ctx := context.Background()

	snap := testSnapshot("blog", time.Now())
	require.NoError(t, catalog.Insert(ctx, snap))

	got, err := catalog.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, "blog", got.InstanceName)
	assert.Equal(t, snap.ArchivePath, got.ArchivePath)
	assert.Equal(t, int64(4096), got.SizeBytes)
	assert.Equal(t, "http://localhost:8080", got.SiteURL)
	assert.Equal(t, snap.CreatedAt, got.CreatedAt)
}

func TestCatalog_GetNotFound(t *testing.T) {
	catalog := setupTestCatalog(t)

	_, err := catalog.Get(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestCatalog_ListNewestFirst(t *testing.T) {
	catalog := setupTestCatalog(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	old := testSnapshot("blog", base)
	recent := testSnapshot("blog", base.Add(time.Hour))
	require.NoError(t, catalog.Insert(ctx, old))
	require.NoError(t, catalog.Insert(ctx, recent))

	snaps, err := catalog.List(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, recent.ID, snaps[0].ID)
	assert.Equal(t, old.ID, snaps[1].ID)
}

func TestCatalog_ListByInstance(t *testing.T) {
	catalog := setupTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, catalog.Insert(ctx, testSnapshot("blog", time.Now())))
	require.NoError(t, catalog.Insert(ctx, testSnapshot("shop", time.Now())))
	require.NoError(t, catalog.Insert(ctx, testSnapshot("blog", time.Now())))

	snaps, err := catalog.ListByInstance(ctx, "blog")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	for _, snap := range snaps {
		assert.Equal(t, "blog", snap.InstanceName)
	}
}

func TestCatalog_ListEmpty(t *testing.T) {
	catalog := setupTestCatalog(t)

	snaps, err := catalog.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestCatalog_Delete(t *testing.T) {
	catalog := setupTestCatalog(t)
	ctx := context.Background()

	snap := testSnapshot("blog", time.Now())
	require.NoError(t, catalog.Insert(ctx, snap))
	require.NoError(t, catalog.Delete(ctx, snap.ID))

	_, err := catalog.Get(ctx, snap.ID)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestCatalog_DeleteNotFound(t *testing.T) {
	catalog := setupTestCatalog(t)

	err := catalog.Delete(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

// =============================================================================
// Error Tests
// =============================================================================

func TestCatalogError_Format(t *testing.T) {
	err := NewCatalogError("Get", "abc-123", "snapshot not found", ErrSnapshotNotFound)
	assert.Equal(t, "Get abc-123: snapshot not found", err.Error())
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	err = NewCatalogError("NewCatalog", "", "failed to open database", ErrConnectionFailed)
	assert.Equal(t, "NewCatalog: failed to open database", err.Error())
}
