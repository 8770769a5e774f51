package snapshot

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Archive layout:
//
//	site.json         manifest (instance identity, ports, origin URL)
//	database.sql      full database dump
//	wp-content/...    themes, plugins, uploads
const (
	manifestName  = "site.json"
	dumpName      = "database.sql"
	contentPrefix = "wp-content"
)

// ErrInvalidArchive is returned when a file is not a snapshot archive.
var ErrInvalidArchive = errors.New("invalid snapshot archive")

// Manifest describes the site inside an archive.
type Manifest struct {
	InstanceName string    `json:"instance_name"`
	SiteURL      string    `json:"site_url"`
	PrimaryPort  int       `json:"primary_port"`
	AdminPort    int       `json:"admin_port"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsArchive reports whether a path looks like a snapshot archive rather
// than a bare SQL dump.
func IsArchive(path string) bool {
	return strings.HasSuffix(path, ".tar.gz") || strings.HasSuffix(path, ".tgz")
}

// =============================================================================
// Pack
// =============================================================================

// Pack writes a snapshot archive. The database dump is expected at
// <contentDir>/database.sql (staged there through the bind mount); it is
// written as a top-level archive entry, not under wp-content/.
func Pack(archivePath string, manifest Manifest, contentDir string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	if err := packEntries(tw, manifest, contentDir); err != nil {
		tw.Close()
		gz.Close()
		out.Close()
		os.Remove(archivePath)
		return err
	}

	if err := tw.Close(); err != nil {
		out.Close()
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		out.Close()
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return out.Close()
}

func packEntries(tw *tar.Writer, manifest Manifest, contentDir string) error {
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize manifest: %w", err)
	}
	if err := writeBytes(tw, manifestName, manifestJSON); err != nil {
		return err
	}

	dumpPath := filepath.Join(contentDir, dumpName)
	if err := writeFileEntry(tw, dumpName, dumpPath); err != nil {
		return fmt.Errorf("failed to archive database dump: %w", err)
	}

	return filepath.WalkDir(contentDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(contentDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		// The staged dump already went in as a top-level entry
		if rel == dumpName {
			return nil
		}

		name := contentPrefix + "/" + filepath.ToSlash(rel)
		if d.IsDir() {
			return tw.WriteHeader(&tar.Header{
				Name:     name + "/",
				Typeflag: tar.TypeDir,
				Mode:     0o755,
			})
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return writeFileEntry(tw, name, path)
	})
}

func writeBytes(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    int64(len(data)),
		ModTime: time.Now().UTC(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}

func writeFileEntry(tw *tar.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	hdr := &tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}

// =============================================================================
// Unpack
// =============================================================================

// Unpack extracts a snapshot archive into an instance's wp-content
// directory: wp-content/ entries land under contentDir, the database dump
// lands at <contentDir>/database.sql ready for replay, and the manifest is
// returned. Fails if the archive is missing its manifest or dump.
func Unpack(archivePath, contentDir string) (*Manifest, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: not gzip data", ErrInvalidArchive)
	}
	defer gz.Close()

	var manifest *Manifest
	sawDump := false

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}

		switch {
		case hdr.Name == manifestName:
			var m Manifest
			if err := json.NewDecoder(tr).Decode(&m); err != nil {
				return nil, fmt.Errorf("%w: bad manifest: %v", ErrInvalidArchive, err)
			}
			manifest = &m

		case hdr.Name == dumpName:
			if err := extractFile(tr, filepath.Join(contentDir, dumpName)); err != nil {
				return nil, err
			}
			sawDump = true

		case strings.HasPrefix(hdr.Name, contentPrefix+"/"):
			rel := strings.TrimPrefix(hdr.Name, contentPrefix+"/")
			target, err := securePath(contentDir, rel)
			if err != nil {
				return nil, err
			}
			if hdr.Typeflag == tar.TypeDir {
				if err := os.MkdirAll(target, 0o755); err != nil {
					return nil, err
				}
				continue
			}
			if hdr.Typeflag != tar.TypeReg {
				continue
			}
			if err := extractFile(tr, target); err != nil {
				return nil, err
			}
		}
	}

	if manifest == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidArchive, manifestName)
	}
	if !sawDump {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidArchive, dumpName)
	}
	return manifest, nil
}

// securePath joins an archive-relative path onto the destination and
// rejects entries that would escape it.
func securePath(dest, rel string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(rel))
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: entry escapes destination: %s", ErrInvalidArchive, rel)
	}
	return target, nil
}

func extractFile(r io.Reader, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
