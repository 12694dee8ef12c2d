package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"datalocker/internal/cipher"
	"datalocker/internal/config"
	"datalocker/internal/escrow"
	"datalocker/internal/fs"
	"datalocker/internal/locker"
	"datalocker/internal/model"
	"datalocker/internal/store"
	"datalocker/internal/store/migrations"
	"datalocker/internal/vault"
	"datalocker/internal/watch"
)

// App is the application layer between the CLI and the Service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the store lifecycle on Close.
type App struct {
	cfg     *config.Config
	store   *store.SQLiteStore
	sealer  locker.Sealer
	vault   locker.Vault
	fsmgr   locker.FilesystemManager
	service *locker.Service
	logger  locker.Logger
	logFile *os.File

	// changed marks operations that may have touched the key store; Close
	// pushes an escrow snapshot only when set.
	changed bool
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "encrypt", "status")
// and tags every log line of the invocation.
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	fsmgr := fs.NewOSFilesystemManager(cfg.Filesystem.Ignore)

	st, err := store.NewStoreFromConfig(cfg.Store, cfg.HostID)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	// A never-migrated store is initialized in place; any other schema
	// mismatch needs operator attention.
	if err := st.CheckMigrations(); err != nil {
		if !errors.Is(err, migrations.ErrNoSchema) {
			st.Close()
			return nil, fmt.Errorf("store schema out of date: %w", err)
		}
		if err := st.Migrate(); err != nil {
			st.Close()
			return nil, fmt.Errorf("initializing store schema: %w", err)
		}
	}

	var sealer locker.Sealer
	var v locker.Vault
	if cfg.Escrow.Enabled {
		sealer, err = escrow.NewSealerFromConfig(cfg.Escrow)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("creating sealer: %w", err)
		}
		if !sealer.IsConfigured() {
			st.Close()
			return nil, fmt.Errorf("escrow is enabled but not initialized: run 'datalocker escrow init'")
		}

		v, err = vault.NewVaultFromConfig(cfg.Escrow.Vault)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("creating vault: %w", err)
		}

		// Check the local store against the escrowed snapshot. Running
		// against a store older than the escrow would push a snapshot
		// that silently drops keys.
		remote, err := v.SnapshotVersion(cfg.HostID)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("checking escrowed snapshot version: %w", err)
		}
		local, err := st.Count()
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("checking local store version: %w", err)
		}
		if remote > local {
			st.Close()
			return nil, fmt.Errorf("local store is behind the escrowed snapshot (local=%d, remote=%d): run 'datalocker escrow restore' or re-initialize", local, remote)
		}
	}

	ciphers, err := cipher.NewSuiteFromConfig(cfg.Cipher)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating cipher suite: %w", err)
	}

	invocationID := fmt.Sprintf("%s-%s", operation, time.Now().UTC().Format("20060102T150405Z"))
	logger, logFile, err := newLogger(cfg.LogDir, invocationID)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	adapter := &slogAdapter{l: logger}
	svc := locker.NewService(st, st, ciphers, fsmgr, adapter, locker.RealClock{}, locker.UUIDGenerator{})

	return &App{
		cfg:     cfg,
		store:   st,
		sealer:  sealer,
		vault:   v,
		fsmgr:   fsmgr,
		service: svc,
		logger:  adapter,
		logFile: logFile,
	}, nil
}

// Encrypt encrypts the file or directory tree at rawPath.
func (a *App) Encrypt(rawPath string) (*locker.Report, error) {
	a.changed = true
	return a.service.Encrypt(rawPath)
}

// Decrypt decrypts the file or directory tree at rawPath.
func (a *App) Decrypt(rawPath string) (*locker.Report, error) {
	a.changed = true
	return a.service.Decrypt(rawPath)
}

// Status returns the derived state of files under rawPath.
func (a *App) Status(rawPath string) ([]*model.FileStatus, error) {
	return a.service.Status(rawPath)
}

// History returns the most recent audit log entries, newest first.
func (a *App) History(limit int) ([]*model.LogEntry, error) {
	return a.service.History(limit)
}

// Watch encrypts files under root as they settle after modification.
// It blocks until ctx is canceled.
func (a *App) Watch(ctx context.Context, root string) error {
	w, err := watch.NewWatcher(a, a.fsmgr, a.logger, a.cfg.Watch.Settle)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}

	return w.Run(ctx)
}

// PushEscrow seals a snapshot of the key store and uploads it to the
// configured vault. The snapshot version is the audit entry count, which
// only grows, so a stale push can always be detected.
func (a *App) PushEscrow() error {
	if !a.cfg.Escrow.Enabled {
		return fmt.Errorf("escrow is not enabled")
	}

	version, err := a.store.Count()
	if err != nil {
		return fmt.Errorf("reading store version: %w", err)
	}

	tmp, err := os.CreateTemp("", "datalocker-snapshot-*.db")
	if err != nil {
		return fmt.Errorf("creating temp file for snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := a.store.BackupTo(tmpPath); err != nil {
		return fmt.Errorf("snapshotting store: %w", err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	var sealed bytes.Buffer
	if err := a.sealer.Seal(f, &sealed); err != nil {
		return fmt.Errorf("sealing snapshot: %w", err)
	}

	if err := a.vault.PutSnapshot(a.cfg.HostID, &sealed, int64(sealed.Len()), version); err != nil {
		return fmt.Errorf("uploading snapshot: %w", err)
	}

	a.logger.Info("escrow snapshot pushed", "version", version, "bytes", sealed.Len())
	return nil
}

// Close pushes an escrow snapshot if this invocation may have changed the
// key store, then releases all resources.
func (a *App) Close() error {
	var firstErr error

	if a.changed && a.cfg.Escrow.Enabled {
		if err := a.PushEscrow(); err != nil {
			firstErr = fmt.Errorf("pushing escrow snapshot: %w", err)
		}
	}

	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
