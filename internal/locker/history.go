package locker

import (
	"fmt"

	"datalocker/internal/model"
)

// History returns the most recent audit log entries, newest first.
func (s *Service) History(limit int) ([]*model.LogEntry, error) {
	entries, err := s.audit.List(limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	return entries, nil
}
