package cipher

import (
	"fmt"

	"datalocker/internal/config"
)

// NewSuiteFromConfig creates a Suite with the configured algorithm as the
// default engine.
func NewSuiteFromConfig(cfg config.CipherConfig) (*Suite, error) {
	switch cfg.Algorithm {
	case AlgorithmChaCha20Poly1305, "":
		return NewSuite(NewChaChaCipher(), NewAESGCMCipher()), nil
	case AlgorithmAESGCM:
		return NewSuite(NewAESGCMCipher(), NewChaChaCipher()), nil
	default:
		return nil, fmt.Errorf("unknown cipher algorithm: %q", cfg.Algorithm)
	}
}
