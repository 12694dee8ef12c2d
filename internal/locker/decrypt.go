package locker

import (
	"fmt"

	"datalocker/internal/model"
)

// Decrypt decrypts the file at rawPath, or every regular file beneath it
// when rawPath is a directory. Each file's key is looked up, the content
// authenticated and replaced, and the key destroyed. Per-file outcomes are
// aggregated in the returned Report.
func (s *Service) Decrypt(rawPath string) (*Report, error) {
	p, err := s.resolveTarget(rawPath)
	if err != nil {
		return nil, err
	}

	s.logger.Info("decrypt started", "path", p.String())
	return s.transformTree(p, s.decryptFile)
}

// decryptFile runs the decrypt state machine for one file:
// resolve key, read ciphertext, authenticate and open, replace the file,
// destroy the key, log. A missing key or failed authentication stops
// before the file is touched, so the bytes on disk are left exactly as
// they were.
func (s *Service) decryptFile(p *Path) error {
	rec, err := s.keys.Get(p.String())
	if err != nil {
		return fmt.Errorf("looking up key: %w", err)
	}
	if rec == nil {
		return ErrKeyNotFound
	}
	defer wipe(rec.Key)

	cipher, err := s.ciphers.Get(rec.Algorithm)
	if err != nil {
		return fmt.Errorf("selecting cipher: %w", err)
	}

	blob, err := s.fsmgr.ReadFile(p)
	if err != nil {
		return fmt.Errorf("reading ciphertext: %w", err)
	}

	plaintext, err := cipher.Decrypt(rec.Key, blob)
	if err != nil {
		return fmt.Errorf("decrypting content: %w", err)
	}

	if err := s.fsmgr.WriteFileAtomic(p, plaintext, p.Info().Mode()); err != nil {
		return fmt.Errorf("writing plaintext: %w", err)
	}

	if err := s.keys.Delete(p.String()); err != nil {
		return fmt.Errorf("deleting key: %w", err)
	}

	s.recordAudit(p.String(), model.OperationDecrypted)
	s.logger.Info("file decrypted", "path", p.String())
	return nil
}
