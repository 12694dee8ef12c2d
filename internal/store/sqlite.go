package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"datalocker/internal/locker"
	"datalocker/internal/model"
	"datalocker/internal/store/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the KeyStore and AuditLog interfaces on a single
// SQLite database. Key records and audit entries live in the same file so
// one snapshot captures everything needed to recover a host.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens a SQLite-backed store.
// path can be a file path or ":memory:" for an in-memory store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. Exported for tools and tests that need a raw configured handle.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite ships with foreign keys OFF for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return db, nil
}

// Key operations
//
// Any operational failure here means keys can no longer be recorded or
// retrieved safely, so errors wrap locker.ErrStoreUnavailable and callers
// abort the invocation.

func (s *SQLiteStore) Put(rec *model.KeyRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO file_keys (path, key, algorithm, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			key = excluded.key,
			algorithm = excluded.algorithm,
			created_at = excluded.created_at`,
		rec.Path, rec.Key, rec.Algorithm, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: upserting key record: %w", locker.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) Get(path string) (*model.KeyRecord, error) {
	row := s.db.QueryRow(`
		SELECT path, key, algorithm, created_at
		FROM file_keys
		WHERE path = ?`, path)

	var rec model.KeyRecord
	if err := row.Scan(&rec.Path, &rec.Key, &rec.Algorithm, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No key stored for this path
		}
		return nil, fmt.Errorf("%w: loading key record: %w", locker.ErrStoreUnavailable, err)
	}
	return &rec, nil
}

// GetByPrefix returns the key records for every path starting with
// pathPrefix, ordered by path. Matching happens in Go rather than with a
// SQL LIKE so that % and _ in file paths need no escaping.
func (s *SQLiteStore) GetByPrefix(pathPrefix string) ([]*model.KeyRecord, error) {
	rows, err := s.db.Query(`
		SELECT path, key, algorithm, created_at
		FROM file_keys
		ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing key records: %w", locker.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var recs []*model.KeyRecord
	for rows.Next() {
		var rec model.KeyRecord
		if err := rows.Scan(&rec.Path, &rec.Key, &rec.Algorithm, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning key record: %w", locker.ErrStoreUnavailable, err)
		}
		if strings.HasPrefix(rec.Path, pathPrefix) {
			recs = append(recs, &rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating key records: %w", locker.ErrStoreUnavailable, err)
	}

	return recs, nil
}

// Delete removes the key record for path. Deleting a path with no record
// is not an error.
func (s *SQLiteStore) Delete(path string) error {
	if _, err := s.db.Exec(`DELETE FROM file_keys WHERE path = ?`, path); err != nil {
		return fmt.Errorf("%w: deleting key record: %w", locker.ErrStoreUnavailable, err)
	}
	return nil
}

// Ping verifies the store is reachable before an invocation starts work.
func (s *SQLiteStore) Ping() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("%w: %w", locker.ErrStoreUnavailable, err)
	}
	return nil
}

// Audit operations
//
// Audit failures are reported plainly; the service degrades to a warning
// rather than aborting, so these do not carry ErrStoreUnavailable.

func (s *SQLiteStore) Record(entry *model.LogEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO audit_log (id, path, operation, created_at)
		VALUES (?, ?, ?, ?)`,
		entry.ID, entry.Path, entry.Operation, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// List returns audit entries newest first. limit <= 0 returns every entry.
func (s *SQLiteStore) List(limit int) ([]*model.LogEntry, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as "no limit"
	}

	rows, err := s.db.Query(`
		SELECT id, path, operation, created_at
		FROM audit_log
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.LogEntry
	for rows.Next() {
		var e model.LogEntry
		if err := rows.Scan(&e.ID, &e.Path, &e.Operation, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}

	return entries, nil
}

// Count returns the total number of audit entries. The count doubles as the
// store's escrow version: it only ever grows, so a snapshot with a smaller
// count is older.
func (s *SQLiteStore) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM audit_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting audit entries: %w", err)
	}
	return n, nil
}

// Migrate brings the store schema to the latest version.
func (s *SQLiteStore) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the store schema is up-to-date.
// Returns migrations.ErrNoSchema for a store that has never been migrated.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckSchemaVersion(s.db)
}

// BackupTo writes a complete, consistent copy of the store to destPath
// using VACUUM INTO.
func (s *SQLiteStore) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up store: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time checks that SQLiteStore implements the store interfaces.
var (
	_ locker.KeyStore = (*SQLiteStore)(nil)
	_ locker.AuditLog = (*SQLiteStore)(nil)
)
