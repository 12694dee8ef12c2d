package locker

import "io"

// Vault provides an interface for key database escrow backends.
// The key database is the only recovery path for every encrypted file, so
// after each mutating operation a sealed snapshot of it is pushed to a
// vault. All operations use io.Reader/io.Writer for streaming.
type Vault interface {
	// PutSnapshot stores a sealed database snapshot for a specific host.
	// size is the number of bytes that will be read from r.
	// version is stored alongside the snapshot for consistency checks.
	PutSnapshot(hostID string, r io.Reader, size int64, version int64) error

	// GetSnapshot retrieves the latest snapshot for a host and writes it to w.
	GetSnapshot(hostID string, w io.Writer) error

	// SnapshotVersion returns the version of the stored snapshot for a host.
	// Returns 0 if no snapshot has been stored.
	SnapshotVersion(hostID string) (int64, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
