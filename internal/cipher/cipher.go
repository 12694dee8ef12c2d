// Package cipher provides the authenticated cipher engines that seal and
// open file contents. All engines share one self-contained blob format:
//
//	[4 bytes magic "DLK1"][1 byte algorithm id][nonce][ciphertext+tag]
//
// The header (magic + algorithm id) is bound into the authentication tag
// as associated data, so tampering with it fails decryption the same way
// tampering with the ciphertext does.
package cipher

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"datalocker/internal/locker"
)

const (
	// MagicBytes is the blob signature "DLK1" (DataLocker format, version 1).
	MagicBytes = "DLK1"

	// KeySize is the symmetric key length shared by all engines.
	KeySize = 32

	headerSize = len(MagicBytes) + 1
)

// Algorithm ids embedded in the blob header.
const (
	algoChaCha20Poly1305 byte = 1
	algoAESGCM           byte = 2
)

// Algorithm names recorded in key records and configuration.
const (
	AlgorithmChaCha20Poly1305 = "chacha20poly1305"
	AlgorithmAESGCM           = "aes-gcm"
)

// generateKey produces a fresh random key for any engine.
func generateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("reading random bytes: %w", err)
	}
	return key, nil
}

// sealBlob encrypts plaintext into a self-contained blob with a fresh
// random nonce, authenticating the header as associated data.
func sealBlob(aead cipher.AEAD, algo byte, plaintext []byte) ([]byte, error) {
	header := make([]byte, 0, headerSize)
	header = append(header, MagicBytes...)
	header = append(header, algo)

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	blob := make([]byte, 0, headerSize+len(nonce)+len(plaintext)+aead.Overhead())
	blob = append(blob, header...)
	blob = append(blob, nonce...)
	return aead.Seal(blob, nonce, plaintext, header), nil
}

// openBlob validates the header, then authenticates and decrypts the blob.
func openBlob(aead cipher.AEAD, algo byte, blob []byte) ([]byte, error) {
	if len(blob) < headerSize+aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: %d bytes is too short", locker.ErrInvalidBlob, len(blob))
	}

	header := blob[:headerSize]
	if string(header[:len(MagicBytes)]) != MagicBytes {
		return nil, fmt.Errorf("%w: bad magic bytes", locker.ErrInvalidBlob)
	}
	if header[len(MagicBytes)] != algo {
		return nil, fmt.Errorf("%w: algorithm id %d does not match engine", locker.ErrInvalidBlob, header[len(MagicBytes)])
	}

	nonce := blob[headerSize : headerSize+aead.NonceSize()]
	plaintext, err := aead.Open(nil, nonce, blob[headerSize+aead.NonceSize():], header)
	if err != nil {
		return nil, locker.ErrIntegrity
	}
	return plaintext, nil
}
