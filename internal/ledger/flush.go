package ledger

import (
	"context"
	"fmt"
	"time"
)

// flush writes the full document. Callers hold s.mu.
func (s *Store) flush(ctx context.Context) error {
	start := time.Now()
	err := s.persister.Save(ctx, s.doc)
	if s.observe != nil {
		s.observe(err, time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}
