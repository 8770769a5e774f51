// Package workspace manages the on-disk layout of instances.
//
// Layout:
//
//	<root>/
//	  .pressbox.lock             advisory lock for port allocation
//	  snapshots.db               snapshot catalog (SQLite)
//	  snapshots/                 default home for snapshot archives
//	  instances/
//	    <name>/
//	      docker-compose.yml     the instance stack, source of truth for ports
//	      instance.json          instance metadata
//	      wp-content/            bind-mounted into the wordpress container
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pressbox/pressbox/internal/core/compose"
	"github.com/pressbox/pressbox/internal/core/instance"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrInstanceNotFound = errors.New("instance not found")
	ErrInstanceExists   = errors.New("instance already exists")
)

// =============================================================================
// Workspace
// =============================================================================

const (
	stackFileName   = "docker-compose.yml"
	metaFileName    = "instance.json"
	lockFileName    = ".pressbox.lock"
	catalogFileName = "snapshots.db"
)

// Workspace is the directory tree holding all instances.
type Workspace struct {
	root   string
	logger *slog.Logger
}

// New creates a workspace rooted at the given directory.
func New(root string, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{
		root:   root,
		logger: logger,
	}
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return w.root
}

// InstancesDir returns the directory holding all instance directories.
func (w *Workspace) InstancesDir() string {
	return filepath.Join(w.root, "instances")
}

// InstanceDir returns the directory of one instance.
func (w *Workspace) InstanceDir(name string) string {
	return filepath.Join(w.InstancesDir(), name)
}

// StackPath returns the compose file path of an instance.
func (w *Workspace) StackPath(name string) string {
	return filepath.Join(w.InstanceDir(name), stackFileName)
}

// ContentDir returns the bind-mounted wp-content directory of an instance.
func (w *Workspace) ContentDir(name string) string {
	return filepath.Join(w.InstanceDir(name), compose.ContentDir)
}

// SnapshotsDir returns the default directory for snapshot archives.
func (w *Workspace) SnapshotsDir() string {
	return filepath.Join(w.root, "snapshots")
}

// CatalogPath returns the path of the snapshot catalog database.
func (w *Workspace) CatalogPath() string {
	return filepath.Join(w.root, catalogFileName)
}

// lockPath returns the path of the allocation lock file.
func (w *Workspace) lockPath() string {
	return filepath.Join(w.root, lockFileName)
}

// EnsureLayout creates the workspace directory tree if missing.
func (w *Workspace) EnsureLayout() error {
	for _, dir := range []string{w.InstancesDir(), w.SnapshotsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create workspace layout: %w", err)
		}
	}
	return nil
}

// =============================================================================
// Instance Directories
// =============================================================================

// Exists reports whether an instance directory is present.
func (w *Workspace) Exists(name string) bool {
	info, err := os.Stat(w.InstanceDir(name))
	return err == nil && info.IsDir()
}

// CreateInstanceDir creates the directory tree for a new instance and
// returns its path. Fails if the instance already exists.
func (w *Workspace) CreateInstanceDir(name string) (string, error) {
	if w.Exists(name) {
		return "", fmt.Errorf("instance %s: %w", name, ErrInstanceExists)
	}
	dir := w.InstanceDir(name)
	if err := os.MkdirAll(filepath.Join(dir, compose.ContentDir), 0o755); err != nil {
		return "", fmt.Errorf("failed to create instance directory: %w", err)
	}
	w.logger.Debug("created instance directory", "instance", name, "dir", dir)
	return dir, nil
}

// RemoveInstanceDir deletes an instance directory and everything under it.
func (w *Workspace) RemoveInstanceDir(name string) error {
	if err := os.RemoveAll(w.InstanceDir(name)); err != nil {
		return fmt.Errorf("failed to remove instance directory: %w", err)
	}
	w.logger.Debug("removed instance directory", "instance", name)
	return nil
}

// =============================================================================
// Stack Files
// =============================================================================

// WriteStack persists the compose file of an instance.
func (w *Workspace) WriteStack(name string, data []byte) error {
	if err := os.WriteFile(w.StackPath(name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write stack file: %w", err)
	}
	return nil
}

// ReadStack reads the raw compose file of an instance.
func (w *Workspace) ReadStack(name string) ([]byte, error) {
	data, err := os.ReadFile(w.StackPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("instance %s: %w", name, ErrInstanceNotFound)
		}
		return nil, fmt.Errorf("failed to read stack file: %w", err)
	}
	return data, nil
}

// ParseStack reads and parses the compose file of an instance.
func (w *Workspace) ParseStack(name string) (*compose.ParsedStack, error) {
	data, err := w.ReadStack(name)
	if err != nil {
		return nil, err
	}
	stack, err := compose.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("instance %s: %w", name, err)
	}
	return stack, nil
}

// =============================================================================
// Instance Metadata
// =============================================================================

// SaveInstance persists instance metadata next to its stack file.
func (w *Workspace) SaveInstance(inst *instance.Instance) error {
	data, err := json.MarshalIndent(inst, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal instance: %w", err)
	}
	path := filepath.Join(inst.Dir, metaFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write instance metadata: %w", err)
	}
	return nil
}

// LoadInstance reads instance metadata.
func (w *Workspace) LoadInstance(name string) (*instance.Instance, error) {
	path := filepath.Join(w.InstanceDir(name), metaFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("instance %s: %w", name, ErrInstanceNotFound)
		}
		return nil, fmt.Errorf("failed to read instance metadata: %w", err)
	}
	var inst instance.Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("failed to parse instance metadata: %w", err)
	}
	return &inst, nil
}

// ListNames returns the name of every instance directory, including ones
// with broken metadata. Remove --all uses this so orphans get cleaned too.
func (w *Workspace) ListNames() ([]string, error) {
	entries, err := os.ReadDir(w.InstancesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read instances directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// ListInstances loads metadata for every instance in the workspace, sorted
// by directory name. Directories without readable metadata are skipped with
// a warning so one broken instance does not hide the others.
func (w *Workspace) ListInstances() ([]*instance.Instance, error) {
	entries, err := os.ReadDir(w.InstancesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read instances directory: %w", err)
	}

	var instances []*instance.Instance
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		inst, err := w.LoadInstance(entry.Name())
		if err != nil {
			w.logger.Warn("skipping unreadable instance", "instance", entry.Name(), "error", err)
			continue
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

// =============================================================================
// Sibling Port Claims
// =============================================================================

// ClaimedPorts scans every instance compose file and returns the host ports
// they publish, mapped to the claiming instance name. Both the primary and
// the admin port of each sibling count as claimed. Instances whose compose
// file cannot be read or parsed are skipped with a warning; a broken sibling
// must not block new allocations.
func (w *Workspace) ClaimedPorts() (map[int]string, error) {
	entries, err := os.ReadDir(w.InstancesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return map[int]string{}, nil
		}
		return nil, fmt.Errorf("failed to read instances directory: %w", err)
	}

	claimed := make(map[int]string)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		stack, err := w.ParseStack(name)
		if err != nil {
			w.logger.Warn("skipping sibling with unreadable stack", "instance", name, "error", err)
			continue
		}
		primary, err := stack.PrimaryPort()
		if err != nil {
			w.logger.Warn("sibling stack publishes no primary port", "instance", name, "error", err)
			continue
		}
		claimed[primary] = name
		if admin := stack.AdminPort(); admin > 0 {
			claimed[admin] = name
		}
	}
	return claimed, nil
}
