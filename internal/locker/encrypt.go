package locker

import (
	"fmt"

	"datalocker/internal/model"
)

// Encrypt encrypts the file at rawPath, or every regular file beneath it
// when rawPath is a directory. Each file gets its own fresh key, persisted
// before the file content is replaced. Per-file outcomes are aggregated in
// the returned Report.
func (s *Service) Encrypt(rawPath string) (*Report, error) {
	p, err := s.resolveTarget(rawPath)
	if err != nil {
		return nil, err
	}

	s.logger.Info("encrypt started", "path", p.String())
	return s.transformTree(p, s.encryptFile)
}

// encryptFile runs the encrypt state machine for one file:
// generate key, persist it, read plaintext, seal, replace the file, log.
// The key is durable before the file is touched. If a later step fails the
// record stays in place; the file content is either the old plaintext or
// the new ciphertext, never a partial write, thanks to the atomic rename.
func (s *Service) encryptFile(p *Path) error {
	existing, err := s.keys.Get(p.String())
	if err != nil {
		return fmt.Errorf("checking for existing key: %w", err)
	}
	if existing != nil {
		return ErrAlreadyEncrypted
	}

	cipher := s.ciphers.Default()
	key, err := cipher.GenerateKey()
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}
	defer wipe(key)

	rec := &model.KeyRecord{
		Path:      p.String(),
		Key:       key,
		Algorithm: cipher.Algorithm(),
		CreatedAt: s.clock.Now(),
	}
	if err := s.keys.Put(rec); err != nil {
		return fmt.Errorf("storing key: %w", err)
	}

	plaintext, err := s.fsmgr.ReadFile(p)
	if err != nil {
		return fmt.Errorf("reading plaintext: %w", err)
	}

	blob, err := cipher.Encrypt(key, plaintext)
	if err != nil {
		return fmt.Errorf("encrypting content: %w", err)
	}

	if err := s.fsmgr.WriteFileAtomic(p, blob, p.Info().Mode()); err != nil {
		return fmt.Errorf("writing ciphertext: %w", err)
	}

	s.recordAudit(p.String(), model.OperationEncrypted)
	s.logger.Info("file encrypted", "path", p.String(), "algorithm", cipher.Algorithm())
	return nil
}
