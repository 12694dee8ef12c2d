package store

import (
	"fmt"
	"os"
	"path/filepath"

	"datalocker/internal/config"
)

// NewStoreFromConfig creates a SQLiteStore based on the store config type.
// The concrete type is returned because the caller wires it as both the
// key store and the audit log.
func NewStoreFromConfig(cfg config.StoreConfig, hostID string) (*SQLiteStore, error) {
	switch cfg.Type {
	case "sqlite":
		path, err := FilePath(cfg, hostID)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteStore(path)
	case "memory":
		return NewSQLiteStore(":memory:")
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}

// FilePath returns the on-disk location of a sqlite store's database file.
// Escrow restore writes a recovered snapshot to this path before the store
// is ever opened.
func FilePath(cfg config.StoreConfig, hostID string) (string, error) {
	if cfg.Type != "sqlite" {
		return "", fmt.Errorf("store type %s has no database file", cfg.Type)
	}
	if cfg.DataDir == "" {
		return "", fmt.Errorf("data_dir required for sqlite store")
	}
	return filepath.Join(cfg.DataDir, hostID+".db"), nil
}
