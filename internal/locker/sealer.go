package locker

import "io"

// Sealer protects key database snapshots before they leave the host.
// Sealing uses the public recipient only — no passphrase required.
// Unsealing requires the passphrase that protects the identity file.
type Sealer interface {
	// Setup performs one-time identity generation. Called during `config init`.
	// Generates an identity, stores the public recipient in plaintext, and
	// encrypts the identity file with the provided passphrase.
	Setup(passphrase string) error

	// Seal encrypts data read from r and writes ciphertext to w.
	// Uses the recipient only — no passphrase required.
	Seal(r io.Reader, w io.Writer) error

	// Unseal decrypts the identity with the passphrase, then decrypts data
	// read from r and writes plaintext to w.
	// Returns an error if the passphrase is incorrect.
	Unseal(passphrase string, r io.Reader, w io.Writer) error

	// IsConfigured returns true if both identity files exist at configured paths.
	IsConfigured() bool
}
