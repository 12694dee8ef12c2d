// Package watch monitors a directory tree and encrypts files once they
// stop changing. Editors save in bursts (temp file, truncate, rename), so
// each changed path is held for a settle period and only encrypted when no
// further event arrives within it.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"datalocker/internal/config"
	"datalocker/internal/locker"
)

// Encryptor is the single operation the watcher drives.
type Encryptor interface {
	Encrypt(rawPath string) (*locker.Report, error)
}

// Watcher encrypts files under a watched root after they settle.
type Watcher struct {
	enc    Encryptor
	fsmgr  locker.FilesystemManager
	logger locker.Logger
	settle time.Duration

	fsw  *fsnotify.Watcher
	root string

	mu      sync.Mutex
	pending map[string]*time.Timer

	settled chan string
	done    chan struct{}
	closed  sync.Once
}

// NewWatcher creates a Watcher. settle values of zero or less fall back to
// the config default.
func NewWatcher(enc Encryptor, fsmgr locker.FilesystemManager, logger locker.Logger, settle time.Duration) (*Watcher, error) {
	if settle <= 0 {
		settle = config.DefaultSettle
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating filesystem watcher: %w", err)
	}

	return &Watcher{
		enc:     enc,
		fsmgr:   fsmgr,
		logger:  logger,
		settle:  settle,
		fsw:     fsw,
		pending: make(map[string]*time.Timer),
		settled: make(chan string),
		done:    make(chan struct{}),
	}, nil
}

// Add registers root and every directory beneath it with the watcher.
// Directories created later are picked up from their create events.
func (w *Watcher) Add(root string) error {
	p, err := w.fsmgr.Resolve(root)
	if err != nil {
		return fmt.Errorf("resolving watch root: %w", err)
	}
	if !p.IsDir() {
		return fmt.Errorf("watch root is not a directory: %s", p.String())
	}
	w.root = p.String()

	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.logger.Info("watching directory", "root", w.root, "settle", w.settle.String())
	return nil
}

// Run processes filesystem events until ctx is cancelled or the watcher is
// closed. Encryption runs on this goroutine, one file at a time.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case path := <-w.settled:
			w.encryptSettled(path)
		}
	}
}

// Close stops all pending timers' deliveries and releases the underlying
// watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	w.closed.Do(func() { close(w.done) })
	return w.fsw.Close()
}

// handleEvent schedules, reschedules, or cancels settle timers for one
// filesystem event.
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create):
		p, err := w.fsmgr.Resolve(ev.Name)
		if err != nil {
			// Already gone again, or not a regular file.
			return
		}
		if p.IsDir() {
			if err := w.fsw.Add(p.String()); err != nil {
				w.logger.Warn("watching new directory failed", "path", p.String(), "error", err)
			}
			return
		}
		w.schedule(ev.Name)
	case ev.Op.Has(fsnotify.Write):
		w.schedule(ev.Name)
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		w.cancel(ev.Name)
	}
}

// schedule starts or resets the settle timer for a path.
func (w *Watcher) schedule(path string) {
	if w.shouldSkip(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case w.settled <- path:
		case <-w.done:
		}
	})
}

// cancel drops the settle timer for a path that disappeared.
func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// shouldSkip filters out our own temp files and anything the ignore rules
// exclude.
func (w *Watcher) shouldSkip(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".tmp-") {
		return true
	}

	p, err := w.fsmgr.Resolve(path)
	if err != nil || p.IsDir() {
		return true
	}

	ignored, err := w.fsmgr.IsIgnored(p, w.root)
	if err != nil {
		w.logger.Warn("checking ignore rules failed", "path", path, "error", err)
		return false
	}
	return ignored
}

// encryptSettled encrypts one settled file. A file that was already
// encrypted is routine in watch mode: our own ciphertext write lands as
// one more event.
func (w *Watcher) encryptSettled(path string) {
	report, err := w.enc.Encrypt(path)
	if err != nil {
		w.logger.Warn("encrypt failed", "path", path, "error", err)
		return
	}

	for _, p := range report.Succeeded {
		w.logger.Info("file encrypted on change", "path", p)
	}
	for _, fe := range report.Failed {
		if errors.Is(fe, locker.ErrAlreadyEncrypted) {
			w.logger.Debug("file already encrypted", "path", fe.Path)
			continue
		}
		w.logger.Warn("encrypt failed", "path", fe.Path, "error", fe.Err)
	}
}
