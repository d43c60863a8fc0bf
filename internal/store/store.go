package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/franz/card-indexer/internal/util"
)

const (
	// currentSchemaVersion is both the DDL migration target and the value
	// the metadata row must carry for the index to be readable
	currentSchemaVersion = 2

	// insertBatchSize is how many prints go into one transaction during a
	// rebuild; bounds the cost of a crashed build
	insertBatchSize = 500
)

// Store is the persistent card index
type Store struct {
	db *sql.DB
}

// Open opens or creates a SQLite card index at the given path and applies
// any pending DDL migrations
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_timeout=5000&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &Store{db: db}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for custom queries
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate applies DDL migrations. Migrations are additive only: new tables
// or nullable columns, never rewrites of existing data.
func (s *Store) migrate() error {
	version, err := s.getDDLVersion()
	if err != nil {
		return err
	}

	if version > currentSchemaVersion {
		// The database was written by newer code; do not touch it
		return &util.SchemaMismatchError{Stored: version, Expected: currentSchemaVersion}
	}
	if version == currentSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if version < 1 {
		if _, err := tx.Exec(schemaV1); err != nil {
			return fmt.Errorf("failed to apply schema v1: %w", err)
		}
		if err := s.setDDLVersion(tx, 1); err != nil {
			return err
		}
	}

	if version < 2 {
		if _, err := tx.Exec(schemaV2); err != nil {
			return fmt.Errorf("failed to apply schema v2: %w", err)
		}
		if err := s.setDDLVersion(tx, 2); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 3 { ... }

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	return nil
}

// getDDLVersion returns the applied DDL migration version
func (s *Store) getDDLVersion() (int, error) {
	var exists int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&exists)
	if err != nil {
		return 0, err
	}

	if exists == 0 {
		return 0, nil
	}

	var version int
	err = s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setDDLVersion records an applied migration in a transaction
func (s *Store) setDDLVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}

// BuildMeta is the single metadata row describing the last completed rebuild
type BuildMeta struct {
	SchemaVersion   int
	UpstreamVersion string
	RunID           string
	BuiltAt         string
}

// Meta returns the build metadata row, or ErrNotFound if the index has
// never completed a build
func (s *Store) Meta() (*BuildMeta, error) {
	m := &BuildMeta{}
	err := s.db.QueryRow(`
		SELECT schema_version, COALESCE(upstream_version, ''),
		       COALESCE(run_id, ''), COALESCE(built_at, '')
		FROM metadata WHERE id = 1
	`).Scan(&m.SchemaVersion, &m.UpstreamVersion, &m.RunID, &m.BuiltAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("card index has no completed build: %w", util.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	return m, nil
}

// EnsureReadable gates every query path: the stored schema version must
// exactly match the expected one. A half-finished build (no metadata row)
// and a version mismatch both fail here, before any query runs.
func (s *Store) EnsureReadable() error {
	m, err := s.Meta()
	if err != nil {
		return err
	}
	if m.SchemaVersion != currentSchemaVersion {
		return &util.SchemaMismatchError{Stored: m.SchemaVersion, Expected: currentSchemaVersion}
	}
	return nil
}

// Transaction executes a function within a transaction
func (s *Store) Transaction(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
