package app

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"datalocker/internal/config"
	"datalocker/internal/escrow"
	"datalocker/internal/store"
	"datalocker/internal/vault"
)

// InitEscrow generates the escrow key pair: a plaintext recipient for
// sealing and a passphrase-protected identity for recovery. It refuses to
// overwrite existing keys, since the current escrowed snapshot can only be
// opened with the identity that sealed it.
func InitEscrow(cfg *config.Config, passphrase string) error {
	if !cfg.Escrow.Enabled {
		return fmt.Errorf("escrow is not enabled in config")
	}

	sealer, err := escrow.NewSealerFromConfig(cfg.Escrow)
	if err != nil {
		return fmt.Errorf("creating sealer: %w", err)
	}
	if sealer.IsConfigured() {
		return fmt.Errorf("escrow keys already exist at %s", cfg.Escrow.RecipientPath)
	}

	if err := sealer.Setup(passphrase); err != nil {
		return fmt.Errorf("setting up escrow keys: %w", err)
	}
	return nil
}

// RestoreEscrow downloads the escrowed snapshot, unseals it with the
// passphrase, and writes it to the local store path. It runs without
// opening the store, so it works on a host that has lost its database
// entirely. An existing store file is only overwritten when force is set.
func RestoreEscrow(cfg *config.Config, passphrase string, force bool) error {
	if !cfg.Escrow.Enabled {
		return fmt.Errorf("escrow is not enabled in config")
	}

	dbPath, err := store.FilePath(cfg.Store, cfg.HostID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dbPath); err == nil && !force {
		return fmt.Errorf("store already exists at %s (use --force to overwrite)", dbPath)
	}

	sealer, err := escrow.NewSealerFromConfig(cfg.Escrow)
	if err != nil {
		return fmt.Errorf("creating sealer: %w", err)
	}
	v, err := vault.NewVaultFromConfig(cfg.Escrow.Vault)
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}

	var sealed bytes.Buffer
	if err := v.GetSnapshot(cfg.HostID, &sealed); err != nil {
		return fmt.Errorf("downloading snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	// Unseal into a temp file next to the target and rename, so a wrong
	// passphrase or truncated download never leaves a half-written store.
	tmp, err := os.CreateTemp(filepath.Dir(dbPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := sealer.Unseal(passphrase, &sealed, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("unsealing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, dbPath); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}
