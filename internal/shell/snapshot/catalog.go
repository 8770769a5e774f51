package snapshot

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Catalog Errors
// =============================================================================

var (
	// ErrSnapshotNotFound is returned when a catalog row is missing.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrConnectionFailed is returned when the catalog database cannot be
	// opened.
	ErrConnectionFailed = errors.New("catalog connection failed")

	// ErrMigrationFailed is returned when the catalog schema cannot be
	// applied.
	ErrMigrationFailed = errors.New("catalog migration failed")
)

// CatalogError wraps catalog failures with operation context.
type CatalogError struct {
	Op      string // Operation that failed (e.g., "Insert")
	ID      string // Snapshot ID if applicable
	Message string
	Err     error
}

func (e *CatalogError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.ID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// NewCatalogError creates a new CatalogError.
func NewCatalogError(op, id, message string, err error) *CatalogError {
	return &CatalogError{
		Op:      op,
		ID:      id,
		Message: message,
		Err:     err,
	}
}

// =============================================================================
// Catalog
// =============================================================================

// Catalog records every snapshot taken so they can be listed and restored
// later. Backed by SQLite; the archive files themselves live on disk and the
// catalog only points at them.
type Catalog struct {
	db *sqlx.DB
}

// NewCatalog opens (or creates) the catalog database and runs migrations.
func NewCatalog(dsn string) (*Catalog, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewCatalogError("NewCatalog", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewCatalogError("NewCatalog", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewCatalogError("NewCatalog", "", err.Error(), ErrMigrationFailed)
	}

	return &Catalog{db: db}, nil
}

// runMigrations applies the embedded schema migrations.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the catalog database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// =============================================================================
// Rows
// =============================================================================

// snapshotRow represents a snapshot row in the database.
type snapshotRow struct {
	ID           string `db:"id"`
	InstanceName string `db:"instance_name"`
	ArchivePath  string `db:"archive_path"`
	SizeBytes    int64  `db:"size_bytes"`
	SiteURL      string `db:"site_url"`
	CreatedAt    string `db:"created_at"`
}

func rowToSnapshot(row *snapshotRow) (*Snapshot, error) {
	createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
	if err != nil {
		return nil, NewCatalogError("rowToSnapshot", row.ID, "invalid created_at timestamp", err)
	}

	return &Snapshot{
		ID:           row.ID,
		InstanceName: row.InstanceName,
		ArchivePath:  row.ArchivePath,
		SizeBytes:    row.SizeBytes,
		SiteURL:      row.SiteURL,
		CreatedAt:    createdAt,
	}, nil
}

// =============================================================================
// Catalog Operations
// =============================================================================

// Insert records a snapshot.
func (c *Catalog) Insert(ctx context.Context, snap *Snapshot) error {
	query := `
		INSERT INTO snapshots (
			id, instance_name, archive_path, size_bytes, site_url, created_at
		) VALUES (
			:id, :instance_name, :archive_path, :size_bytes, :site_url, :created_at
		)`

	row := map[string]any{
		"id":            snap.ID,
		"instance_name": snap.InstanceName,
		"archive_path":  snap.ArchivePath,
		"size_bytes":    snap.SizeBytes,
		"site_url":      snap.SiteURL,
		"created_at":    snap.CreatedAt.UTC().Format(time.RFC3339),
	}

	if _, err := c.db.NamedExecContext(ctx, query, row); err != nil {
		return NewCatalogError("Insert", snap.ID, err.Error(), err)
	}
	return nil
}

// Get returns one snapshot by ID.
func (c *Catalog) Get(ctx context.Context, id string) (*Snapshot, error) {
	query := `SELECT * FROM snapshots WHERE id = ?`

	var row snapshotRow
	if err := c.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewCatalogError("Get", id, "snapshot not found", ErrSnapshotNotFound)
		}
		return nil, NewCatalogError("Get", id, err.Error(), err)
	}

	return rowToSnapshot(&row)
}

// List returns all snapshots, newest first.
func (c *Catalog) List(ctx context.Context) ([]Snapshot, error) {
	query := `SELECT * FROM snapshots ORDER BY created_at DESC, id`

	var rows []snapshotRow
	if err := c.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, NewCatalogError("List", "", err.Error(), err)
	}

	snaps := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := rowToSnapshot(&row)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, nil
}

// ListByInstance returns the snapshots of one instance, newest first.
func (c *Catalog) ListByInstance(ctx context.Context, instanceName string) ([]Snapshot, error) {
	query := `SELECT * FROM snapshots WHERE instance_name = ? ORDER BY created_at DESC, id`

	var rows []snapshotRow
	if err := c.db.SelectContext(ctx, &rows, query, instanceName); err != nil {
		return nil, NewCatalogError("ListByInstance", "", err.Error(), err)
	}

	snaps := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := rowToSnapshot(&row)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, nil
}

// Delete removes one catalog row.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return NewCatalogError("Delete", id, err.Error(), err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return NewCatalogError("Delete", id, err.Error(), err)
	}
	if affected == 0 {
		return NewCatalogError("Delete", id, "snapshot not found", ErrSnapshotNotFound)
	}
	return nil
}
