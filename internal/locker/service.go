package locker

import (
	"errors"
	"fmt"

	"datalocker/internal/model"
)

// Service is the orchestration layer that coordinates across all components
// to perform the high-level operations needed by the CLI: encrypting and
// decrypting files or whole trees, reporting state, and listing history.
type Service struct {
	keys    KeyStore
	audit   AuditLog
	ciphers CipherSuite
	fsmgr   FilesystemManager
	logger  Logger
	clock   Clock
	idgen   IDGenerator
}

// NewService creates a new Service with the provided dependencies.
func NewService(keys KeyStore, audit AuditLog, ciphers CipherSuite, fsmgr FilesystemManager, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		keys:    keys,
		audit:   audit,
		ciphers: ciphers,
		fsmgr:   fsmgr,
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
	}
}

// resolveTarget validates the raw path and confirms the key store is
// reachable. Both checks run before any file is touched: a bad path or an
// unreachable store aborts the invocation with no side effects.
func (s *Service) resolveTarget(rawPath string) (*Path, error) {
	p, err := s.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	if err := s.keys.Ping(); err != nil {
		return nil, fmt.Errorf("pinging key store: %w", err)
	}

	return p, nil
}

// transformTree applies transform to the file at root, or to every regular
// file beneath it when root is a directory. Files are processed one at a
// time in lexicographic path order. One file's failure is recorded in the
// Report and does not stop its siblings; a store-unavailable failure aborts
// the walk, returning the partial Report alongside the error.
func (s *Service) transformTree(root *Path, transform func(*Path) error) (*Report, error) {
	report := &Report{}

	if !root.IsDir() {
		return report, s.transformOne(root, transform, report)
	}

	files, err := s.fsmgr.FindFiles(root, true)
	if err != nil {
		return report, fmt.Errorf("finding files: %w", err)
	}

	for _, f := range files {
		ignored, err := s.fsmgr.IsIgnored(f, root.String())
		if err != nil {
			return report, fmt.Errorf("checking ignore rules: %w", err)
		}
		if ignored {
			s.logger.Debug("file ignored", "path", f.String())
			continue
		}

		if err := s.transformOne(f, transform, report); err != nil {
			return report, err
		}
	}

	return report, nil
}

// transformOne runs transform on a single file and records the outcome in
// the report. A store-unavailable error is returned rather than recorded;
// the caller must abort the invocation.
func (s *Service) transformOne(p *Path, transform func(*Path) error, report *Report) error {
	err := transform(p)
	if err == nil {
		report.addSuccess(p.String())
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", p.String(), err)
	}
	s.logger.Warn("file failed", "path", p.String(), "error", err)
	report.addFailure(p.String(), err)
	return nil
}

// recordAudit appends an audit entry for a completed transform.
// The transform has already succeeded by the time this runs, so a log
// write failure is degraded to a warning, never an operation failure.
func (s *Service) recordAudit(path string, operation string) {
	entry := &model.LogEntry{
		ID:        s.idgen.New(),
		Path:      path,
		Operation: operation,
		CreatedAt: s.clock.Now(),
	}
	if err := s.audit.Record(entry); err != nil {
		s.logger.Warn("audit log write failed", "path", path, "operation", operation, "error", err)
	}
}

// wipe zeroes key material once it is no longer needed.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
