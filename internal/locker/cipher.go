package locker

// Cipher seals and opens byte slices with an authenticated cipher.
// Ciphertext blobs are self-contained: the nonce and authentication tag
// travel inside the blob, so decryption needs only the key.
type Cipher interface {
	// GenerateKey produces a fresh random key of the length the cipher expects.
	GenerateKey() ([]byte, error)

	// Encrypt seals plaintext under key. Each call uses a fresh random nonce.
	// Fails with ErrInvalidKey if the key has the wrong length.
	Encrypt(key, plaintext []byte) ([]byte, error)

	// Decrypt opens a blob produced by Encrypt. Fails with ErrIntegrity if
	// the authentication tag does not verify (tampered data or wrong key);
	// it never returns unauthenticated plaintext.
	Decrypt(key, ciphertext []byte) ([]byte, error)

	// Algorithm returns the cipher's registered name, recorded alongside
	// each key so files can be opened after the configured default changes.
	Algorithm() string
}

// CipherSuite holds the configured default cipher plus lookup by algorithm
// name. New encryptions use the default; decryption selects the engine the
// key record names.
type CipherSuite interface {
	// Default returns the engine used for new encryptions.
	Default() Cipher

	// Get returns the engine registered under the given algorithm name.
	Get(algorithm string) (Cipher, error)
}
