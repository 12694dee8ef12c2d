package locker

import (
	"fmt"
	"strings"

	"datalocker/internal/model"
)

// Status returns the derived state of the file at rawPath, or of every
// regular file beneath it when rawPath is a directory. State is
// reconstructed from key store membership: a path with a stored key is
// ciphertext, one without is plaintext. Key records whose file no longer
// exists on disk are reported as missing.
func (s *Service) Status(rawPath string) ([]*model.FileStatus, error) {
	p, err := s.resolveTarget(rawPath)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("computing status", "path", p.String())

	if !p.IsDir() {
		rec, err := s.keys.Get(p.String())
		if err != nil {
			return nil, fmt.Errorf("looking up key: %w", err)
		}
		return []*model.FileStatus{fileStatus(p, rec != nil)}, nil
	}

	files, err := s.fsmgr.FindFiles(p, true)
	if err != nil {
		return nil, fmt.Errorf("finding files: %w", err)
	}

	seen := make(map[string]bool, len(files))
	statuses := make([]*model.FileStatus, 0, len(files))
	for _, f := range files {
		seen[f.String()] = true
		rec, err := s.keys.Get(f.String())
		if err != nil {
			return nil, fmt.Errorf("looking up key: %w", err)
		}
		statuses = append(statuses, fileStatus(f, rec != nil))
	}

	// Also check for key records whose file no longer exists on disk.
	prefix := p.String()
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	recs, err := s.keys.GetByPrefix(prefix)
	if err != nil {
		return nil, fmt.Errorf("listing key records: %w", err)
	}
	for _, rec := range recs {
		if seen[rec.Path] {
			continue
		}
		statuses = append(statuses, &model.FileStatus{
			Path:  rec.Path,
			State: model.StateMissing,
		})
	}

	return statuses, nil
}

// fileStatus computes the status of a single file present on disk.
func fileStatus(p *Path, hasKey bool) *model.FileStatus {
	state := model.StatePlaintext
	if hasKey {
		state = model.StateCiphertext
	}
	return &model.FileStatus{
		Path:  p.String(),
		State: state,
		Size:  p.Info().Size(),
	}
}
