package app

import (
	"context"
	"strings"

	"github.com/hylla/timebox/internal/domain"
)

// ApplyEdit writes one field of a stored record and recomputes its derived values.
//
// Completing the active record through a status edit goes through the same termination path as
// CompleteActivity. Reopening a completed record makes it the active activity, which is a conflict
// while another one is running.
func (s *Store) ApplyEdit(ctx context.Context, id, rawField, raw string) (domain.Activity, error) {
	field, err := domain.ParseField(rawField)
	if err != nil {
		return domain.Activity{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id = strings.TrimSpace(id)
	idx := s.indexLocked(id)
	if idx < 0 {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	a := &s.activities[idx]
	wasActive := id == s.activeID

	if field == domain.FieldStatus {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return domain.Activity{}, err
		}
		if status == domain.StatusInProgress && !a.InProgress() && s.activeID != "" {
			return domain.Activity{}, domain.ErrActivityActive
		}
	}

	if err := a.ApplyField(field, raw, s.clock(), s.loc); err != nil {
		return domain.Activity{}, err
	}

	switch {
	case wasActive && !a.InProgress():
		s.finishLocked()
	case !wasActive && a.InProgress():
		s.activeID = a.ID
		s.timer.start(a.RemainingSeconds)
	case wasActive:
		s.timer.retarget(a.RemainingSeconds)
	}
	s.persistLocked(ctx)
	return a.Clone(), nil
}
