package escrow

import (
	"fmt"

	"datalocker/internal/config"
	"datalocker/internal/locker"
)

// NewSealerFromConfig creates a Sealer based on the configuration type.
func NewSealerFromConfig(cfg config.EscrowConfig) (locker.Sealer, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeSealer(cfg), nil
	case "test":
		return NewTestSealer(), nil
	default:
		return nil, fmt.Errorf("unknown sealer type: %q", cfg.Type)
	}
}
