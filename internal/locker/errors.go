package locker

import "errors"

// Path and store errors abort an invocation before any file is touched.
var (
	// ErrInvalidPath indicates the target is neither a regular file nor a directory.
	ErrInvalidPath = errors.New("path is not a regular file or directory")

	// ErrStoreUnavailable indicates the key store backend is unreachable.
	// Keys cannot be safely generated without being recorded, so this is
	// fatal to the whole invocation, not just one file.
	ErrStoreUnavailable = errors.New("key store is unavailable")
)

// Per-file errors are recorded in the Report; siblings continue processing.
var (
	// ErrKeyNotFound indicates a decrypt was attempted on a path with no stored key.
	ErrKeyNotFound = errors.New("no key stored for path")

	// ErrAlreadyEncrypted indicates an encrypt was attempted on a path that
	// already has a stored key. Proceeding would strand the previous key and
	// leave the file irrecoverable.
	ErrAlreadyEncrypted = errors.New("path already has a stored key")

	// ErrIntegrity indicates ciphertext failed authentication: the file was
	// tampered with or the stored key is wrong. The file is left untouched.
	ErrIntegrity = errors.New("ciphertext failed authentication")
)

// Cipher input errors.
var (
	// ErrInvalidKey indicates a key of the wrong length was supplied.
	ErrInvalidKey = errors.New("invalid key length")

	// ErrInvalidBlob indicates data that is not a recognizable ciphertext
	// blob: too short, wrong magic, or an unknown algorithm byte.
	ErrInvalidBlob = errors.New("not a valid ciphertext blob")
)
