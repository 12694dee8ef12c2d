package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"datalocker/internal/config"
	"datalocker/internal/model"
	"datalocker/internal/store"
	"datalocker/internal/vault"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return config.NewConfig("host-1", t.TempDir())
}

// writeTestFile creates a file under the config's base dir and returns its path.
func writeTestFile(t *testing.T, cfg *config.Config, name string, content []byte) string {
	t.Helper()
	dir := filepath.Join(cfg.BaseDir, "files")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestNewApp(t *testing.T) {
	t.Run("initializes a fresh store in place", func(t *testing.T) {
		cfg := newTestConfig(t)

		a, err := NewApp(cfg, "status")
		if err != nil {
			t.Fatalf("NewApp() error = %v", err)
		}
		if err := a.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		dbPath, err := store.FilePath(cfg.Store, cfg.HostID)
		if err != nil {
			t.Fatalf("FilePath() error = %v", err)
		}
		if _, err := os.Stat(dbPath); err != nil {
			t.Errorf("store file not created: %v", err)
		}

		// Reopening finds the schema already in place.
		a2, err := NewApp(cfg, "status")
		if err != nil {
			t.Fatalf("second NewApp() error = %v", err)
		}
		a2.Close()
	})

	t.Run("fails when escrow is enabled but not initialized", func(t *testing.T) {
		cfg := newTestConfig(t)
		cfg.Escrow.Enabled = true

		_, err := NewApp(cfg, "status")
		if err == nil {
			t.Fatal("NewApp() expected error for uninitialized escrow")
		}
		if !strings.Contains(err.Error(), "not initialized") {
			t.Errorf("error = %v, want mention of initialization", err)
		}
	})
}

func TestApp_EncryptDecrypt(t *testing.T) {
	cfg := newTestConfig(t)
	plaintext := []byte("quarterly numbers, confidential")
	target := writeTestFile(t, cfg, "notes.txt", plaintext)

	a, err := NewApp(cfg, "encrypt")
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer a.Close()

	report, err := a.Encrypt(target)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if !report.Ok() {
		t.Fatalf("report.Failed = %v, want none", report.Failed)
	}

	blob, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if bytes.Equal(blob, plaintext) {
		t.Fatal("file on disk was not encrypted")
	}

	statuses, err := a.Status(target)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(statuses) != 1 || statuses[0].State != model.StateCiphertext {
		t.Errorf("statuses = %+v, want single ciphertext entry", statuses)
	}

	report, err = a.Decrypt(target)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !report.Ok() {
		t.Fatalf("report.Failed = %v, want none", report.Failed)
	}

	restored, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(restored, plaintext) {
		t.Errorf("restored content = %q, want %q", restored, plaintext)
	}

	entries, err := a.History(0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("history entries = %d, want 2", len(entries))
	}
}

// enableTestEscrow turns on escrow with the header-only sealer and a
// filesystem vault under the config's base dir.
func enableTestEscrow(t *testing.T, cfg *config.Config) {
	t.Helper()
	cfg.Escrow.Enabled = true
	cfg.Escrow.Type = "test"
	cfg.Escrow.Vault = config.VaultConfig{
		Type:        "filesystem",
		FSVaultRoot: filepath.Join(cfg.BaseDir, "vault"),
	}
}

func TestApp_EscrowRoundTrip(t *testing.T) {
	cfg := newTestConfig(t)
	enableTestEscrow(t, cfg)
	plaintext := []byte("the only copy of this key matters")
	target := writeTestFile(t, cfg, "notes.txt", plaintext)

	// Encrypt a file; Close pushes a sealed snapshot of the store.
	a, err := NewApp(cfg, "encrypt")
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	report, err := a.Encrypt(target)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if !report.Ok() {
		t.Fatalf("report.Failed = %v, want none", report.Failed)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	v, err := vault.NewVaultFromConfig(cfg.Escrow.Vault)
	if err != nil {
		t.Fatalf("NewVaultFromConfig() error = %v", err)
	}
	version, err := v.SnapshotVersion(cfg.HostID)
	if err != nil {
		t.Fatalf("SnapshotVersion() error = %v", err)
	}
	if version != 1 {
		t.Fatalf("snapshot version = %d, want 1", version)
	}

	// Simulate losing the local store.
	dbPath, err := store.FilePath(cfg.Store, cfg.HostID)
	if err != nil {
		t.Fatalf("FilePath() error = %v", err)
	}
	if err := os.Remove(dbPath); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	// A fresh empty store is behind the escrowed snapshot and refused.
	if _, err := NewApp(cfg, "status"); err == nil {
		t.Fatal("NewApp() expected error for store behind escrow")
	} else if !strings.Contains(err.Error(), "behind") {
		t.Errorf("error = %v, want mention of store behind escrow", err)
	}

	// Restore from escrow; force because the refused open above left an
	// empty migrated store behind.
	if err := RestoreEscrow(cfg, "", true); err != nil {
		t.Fatalf("RestoreEscrow() error = %v", err)
	}

	a2, err := NewApp(cfg, "decrypt")
	if err != nil {
		t.Fatalf("NewApp() after restore error = %v", err)
	}
	defer a2.Close()

	entries, err := a2.History(0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("history entries = %d, want 1", len(entries))
	}

	// The restored key opens the file encrypted before the disaster.
	report, err = a2.Decrypt(target)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !report.Ok() {
		t.Fatalf("report.Failed = %v, want none", report.Failed)
	}
	restored, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(restored, plaintext) {
		t.Errorf("restored content = %q, want %q", restored, plaintext)
	}
}

func TestApp_EscrowPushPolicy(t *testing.T) {
	t.Run("read-only operations push nothing", func(t *testing.T) {
		cfg := newTestConfig(t)
		enableTestEscrow(t, cfg)

		a, err := NewApp(cfg, "log")
		if err != nil {
			t.Fatalf("NewApp() error = %v", err)
		}
		if _, err := a.History(0); err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if err := a.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		v, err := vault.NewVaultFromConfig(cfg.Escrow.Vault)
		if err != nil {
			t.Fatalf("NewVaultFromConfig() error = %v", err)
		}
		version, err := v.SnapshotVersion(cfg.HostID)
		if err != nil {
			t.Fatalf("SnapshotVersion() error = %v", err)
		}
		if version != 0 {
			t.Errorf("snapshot version = %d, want 0", version)
		}
	})

	t.Run("manual push works without a mutating operation", func(t *testing.T) {
		cfg := newTestConfig(t)
		enableTestEscrow(t, cfg)

		a, err := NewApp(cfg, "escrow")
		if err != nil {
			t.Fatalf("NewApp() error = %v", err)
		}
		defer a.Close()

		if err := a.PushEscrow(); err != nil {
			t.Fatalf("PushEscrow() error = %v", err)
		}

		v, err := vault.NewVaultFromConfig(cfg.Escrow.Vault)
		if err != nil {
			t.Fatalf("NewVaultFromConfig() error = %v", err)
		}
		if _, err := v.SnapshotVersion(cfg.HostID); err != nil {
			t.Fatalf("SnapshotVersion() error = %v", err)
		}
	})
}

func TestInitEscrow(t *testing.T) {
	t.Run("fails when escrow is disabled", func(t *testing.T) {
		cfg := newTestConfig(t)

		if err := InitEscrow(cfg, "passphrase"); err == nil {
			t.Fatal("InitEscrow() expected error when escrow disabled")
		}
	})

	t.Run("refuses existing keys", func(t *testing.T) {
		cfg := newTestConfig(t)
		enableTestEscrow(t, cfg)

		// The test sealer always reports configured keys.
		err := InitEscrow(cfg, "passphrase")
		if err == nil {
			t.Fatal("InitEscrow() expected error for existing keys")
		}
		if !strings.Contains(err.Error(), "already exist") {
			t.Errorf("error = %v, want mention of existing keys", err)
		}
	})
}

func TestRestoreEscrow_RefusesExistingStore(t *testing.T) {
	cfg := newTestConfig(t)
	enableTestEscrow(t, cfg)

	// Create the store, push a snapshot, and leave the store in place.
	a, err := NewApp(cfg, "escrow")
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	if err := a.PushEscrow(); err != nil {
		t.Fatalf("PushEscrow() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := RestoreEscrow(cfg, "", false); err == nil {
		t.Fatal("RestoreEscrow() expected error for existing store")
	}
}
