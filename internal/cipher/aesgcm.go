package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"datalocker/internal/locker"
)

// AESGCMCipher seals content with AES-256-GCM.
type AESGCMCipher struct{}

var _ locker.Cipher = (*AESGCMCipher)(nil)

// NewAESGCMCipher creates a new AESGCMCipher.
func NewAESGCMCipher() *AESGCMCipher {
	return &AESGCMCipher{}
}

func (c *AESGCMCipher) GenerateKey() ([]byte, error) {
	return generateKey()
}

func (c *AESGCMCipher) Algorithm() string {
	return AlgorithmAESGCM
}

func (c *AESGCMCipher) Encrypt(key, plaintext []byte) ([]byte, error) {
	aead, err := c.aead(key)
	if err != nil {
		return nil, err
	}
	return sealBlob(aead, algoAESGCM, plaintext)
}

func (c *AESGCMCipher) Decrypt(key, ciphertext []byte) ([]byte, error) {
	aead, err := c.aead(key)
	if err != nil {
		return nil, err
	}
	return openBlob(aead, algoAESGCM, ciphertext)
}

func (c *AESGCMCipher) aead(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", locker.ErrInvalidKey, len(key), KeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
