package model

import "time"

// Operation values recorded in the audit log.
const (
	OperationEncrypted = "encrypted"
	OperationDecrypted = "decrypted"
)

// KeyRecord binds a file path to the symmetric key protecting it.
// At most one record exists per path: it is created when the file is
// encrypted and destroyed when the file is decrypted.
type KeyRecord struct {
	Path      string    // Absolute path on host (primary key)
	Key       []byte    // 32-byte symmetric key
	Algorithm string    // Cipher algorithm that sealed the file
	CreatedAt time.Time // When the key was generated
}

// LogEntry is one row of the append-only audit log.
type LogEntry struct {
	ID        string    // UUID
	Path      string    // Absolute path the operation touched
	Operation string    // OperationEncrypted or OperationDecrypted
	CreatedAt time.Time // When the operation completed
}

// FileState is the derived state of a path, reconstructed from key
// store membership rather than stored anywhere.
type FileState string

const (
	StatePlaintext  FileState = "plaintext"  // No key record
	StateCiphertext FileState = "ciphertext" // Key record present, file on disk
	StateMissing    FileState = "missing"    // Key record present, file gone
)

// FileStatus pairs a path with its derived state for status listings.
type FileStatus struct {
	Path  string
	State FileState
	Size  int64 // Size on disk; zero when the file is missing
}
