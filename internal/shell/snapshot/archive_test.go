package snapshot

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

// populateContentDir lays out a wp-content tree with a staged dump, the way
// it looks right before Pack runs.
func populateContentDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "themes", "custom"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "uploads", "2026", "03"), 0o755))

	files := map[string]string{
		"database.sql":             "INSERT INTO wp_options VALUES (1);",
		"index.php":                "<?php // Silence is golden.",
		"themes/custom/style.css":  "body { color: red; }",
		"uploads/2026/03/hero.jpg": "jpegdata",
	}
	for rel, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, filepath.FromSlash(rel)), []byte(content), 0o644))
	}
	return dir
}

func testManifest() Manifest {
	return Manifest{
		InstanceName: "blog",
		SiteURL:      "http://localhost:8080",
		PrimaryPort:  8080,
		AdminPort:    8180,
		CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// writeRawArchive builds an arbitrary tar.gz for negative tests.
func writeRawArchive(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw.tar.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, content := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

// =============================================================================
// Pack / Unpack Tests
// =============================================================================

func TestPackUnpack_Roundtrip(t *testing.T) {
	contentDir := populateContentDir(t)
	archivePath := filepath.Join(t.TempDir(), "blog.tar.gz")

	require.NoError(t, Pack(archivePath, testManifest(), contentDir))

	dest := t.TempDir()
	manifest, err := Unpack(archivePath, dest)
	require.NoError(t, err)

	assert.Equal(t, "blog", manifest.InstanceName)
	assert.Equal(t, "http://localhost:8080", manifest.SiteURL)
	assert.Equal(t, 8080, manifest.PrimaryPort)
	assert.Equal(t, 8180, manifest.AdminPort)

	// The dump lands at the content root, staged for replay
	dump, err := os.ReadFile(filepath.Join(dest, "database.sql"))
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO wp_options VALUES (1);", string(dump))

	// wp-content files restored with their tree intact
	css, err := os.ReadFile(filepath.Join(dest, "themes", "custom", "style.css"))
	require.NoError(t, err)
	assert.Equal(t, "body { color: red; }", string(css))

	jpg, err := os.ReadFile(filepath.Join(dest, "uploads", "2026", "03", "hero.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpegdata", string(jpg))
}

func TestPack_DumpNotDuplicatedUnderContent(t *testing.T) {
	contentDir := populateContentDir(t)
	archivePath := filepath.Join(t.TempDir(), "blog.tar.gz")
	require.NoError(t, Pack(archivePath, testManifest(), contentDir))

	f, err := os.Open(archivePath)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	var names []string
	for {
		hdr, err := tr.Next()
		if err != nil {
			break
		}
		names = append(names, hdr.Name)
	}

	assert.Contains(t, names, "database.sql")
	assert.Contains(t, names, "site.json")
	assert.Contains(t, names, "wp-content/index.php")
	assert.NotContains(t, names, "wp-content/database.sql")
}

func TestPack_MissingDump(t *testing.T) {
	contentDir := t.TempDir()
	archivePath := filepath.Join(t.TempDir(), "blog.tar.gz")

	err := Pack(archivePath, testManifest(), contentDir)
	require.Error(t, err)

	// A failed pack leaves no partial archive behind
	_, err = os.Stat(archivePath)
	assert.True(t, os.IsNotExist(err))
}

func TestUnpack_NotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("not an archive"), 0o644))

	_, err := Unpack(path, t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArchive)
}

func TestUnpack_MissingManifest(t *testing.T) {
	path := writeRawArchive(t, map[string]string{
		"database.sql": "INSERT INTO wp_options VALUES (1);",
	})

	_, err := Unpack(path, t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArchive)
	assert.Contains(t, err.Error(), "site.json")
}

func TestUnpack_MissingDump(t *testing.T) {
	path := writeRawArchive(t, map[string]string{
		"site.json": `{"instance_name":"blog","site_url":"http://localhost:8080"}`,
	})

	_, err := Unpack(path, t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArchive)
	assert.Contains(t, err.Error(), "database.sql")
}

func TestUnpack_RejectsEscapingEntries(t *testing.T) {
	path := writeRawArchive(t, map[string]string{
		"site.json":             `{"instance_name":"blog"}`,
		"database.sql":          "INSERT INTO wp_options VALUES (1);",
		"wp-content/../../evil": "pwned",
	})

	dest := t.TempDir()
	_, err := Unpack(path, dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArchive)
	assert.Contains(t, err.Error(), "escapes destination")

	_, statErr := os.Stat(filepath.Join(filepath.Dir(dest), "evil"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestIsArchive(t *testing.T) {
	assert.True(t, IsArchive("blog.tar.gz"))
	assert.True(t, IsArchive("/snapshots/blog-20260301.tgz"))
	assert.False(t, IsArchive("dump.sql"))
	assert.False(t, IsArchive("blog.tar"))
	assert.False(t, IsArchive("blog.zip"))
}
