package locker

import "datalocker/internal/model"

// KeyStore provides durable storage for per-path key records.
// All methods should be implemented with appropriate transaction handling.
type KeyStore interface {
	// Put inserts or overwrites the key record for a path.
	Put(rec *model.KeyRecord) error

	// Get returns the key record for a path, or nil if none exists.
	// Absence is not an error.
	Get(path string) (*model.KeyRecord, error)

	// GetByPrefix returns all key records whose path starts with the given
	// prefix, ordered by path.
	GetByPrefix(pathPrefix string) ([]*model.KeyRecord, error)

	// Delete removes the key record for a path.
	// Deleting a path with no record is a no-op, not an error.
	Delete(path string) error

	// Ping verifies the backend is reachable.
	Ping() error

	// Close closes the store connection.
	Close() error
}

// AuditLog provides append-only storage for operation log entries.
type AuditLog interface {
	// Record appends one entry. Entries are immutable once written.
	Record(entry *model.LogEntry) error

	// List returns the most recent entries, newest first.
	// A limit of 0 or less returns all entries.
	List(limit int) ([]*model.LogEntry, error)

	// Count returns the total number of entries.
	Count() (int64, error)
}
