package escrow

import (
	"bytes"
	"fmt"
	"io"

	"datalocker/internal/locker"
)

// testHeader is prepended to data by TestSealer to make sealed output
// clearly different from the input while remaining deterministic and reversible.
var testHeader = []byte("DLSEAL\x00\x00")

// TestSealer is a simple, deterministic sealer for testing.
// It prepends a fixed 8-byte header on Seal and strips it on Unseal,
// ignoring the passphrase entirely. This keeps escrow tests fast: the real
// AgeSealer pays a deliberate scrypt cost on every Setup and Unseal.
type TestSealer struct {
	setupCalled bool
}

var _ locker.Sealer = (*TestSealer)(nil)

// NewTestSealer creates a new TestSealer.
func NewTestSealer() *TestSealer {
	return &TestSealer{}
}

func (s *TestSealer) Setup(passphrase string) error {
	s.setupCalled = true
	return nil
}

func (s *TestSealer) Seal(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (s *TestSealer) Unseal(passphrase string, r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test seal header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (s *TestSealer) IsConfigured() bool {
	return true
}
