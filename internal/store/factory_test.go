package store

import (
	"os"
	"path/filepath"
	"testing"

	"datalocker/internal/config"
)

func TestNewStoreFromConfig(t *testing.T) {
	t.Run("memory store", func(t *testing.T) {
		s, err := NewStoreFromConfig(config.StoreConfig{Type: "memory"}, "host-1")
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		defer s.Close()

		if err := s.Migrate(); err != nil {
			t.Errorf("Migrate() error = %v", err)
		}
	})

	t.Run("sqlite store creates db file named after host", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewStoreFromConfig(config.StoreConfig{Type: "sqlite", DataDir: dir}, "host-1")
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		defer s.Close()

		if _, err := os.Stat(filepath.Join(dir, "host-1.db")); err != nil {
			t.Errorf("expected db file at %s: %v", filepath.Join(dir, "host-1.db"), err)
		}
	})

	t.Run("sqlite without data_dir fails", func(t *testing.T) {
		_, err := NewStoreFromConfig(config.StoreConfig{Type: "sqlite"}, "host-1")
		if err == nil {
			t.Fatal("NewStoreFromConfig() expected error for missing data_dir")
		}
	})

	t.Run("unknown type fails", func(t *testing.T) {
		_, err := NewStoreFromConfig(config.StoreConfig{Type: "etcd"}, "host-1")
		if err == nil {
			t.Fatal("NewStoreFromConfig() expected error for unknown type")
		}
	})
}
