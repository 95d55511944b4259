package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/timebox/internal/domain"
)

// SnapshotVersion tags the persisted blob layout.
const SnapshotVersion = "timebox.snapshot.v1"

// Snapshot is the persisted form of the activity list, most recent first.
type Snapshot struct {
	Version    string            `json:"version"`
	SavedAt    time.Time         `json:"saved_at"`
	Activities []domain.Activity `json:"activities"`
}

// EncodeSnapshot serializes activities into a versioned blob.
func EncodeSnapshot(activities []domain.Activity, now time.Time) ([]byte, error) {
	snap := Snapshot{
		Version:    SnapshotVersion,
		SavedAt:    now.UTC(),
		Activities: activities,
	}
	if snap.Activities == nil {
		snap.Activities = []domain.Activity{}
	}
	encoded, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return encoded, nil
}

// DecodeSnapshot parses a persisted blob. A bare JSON array of activities is accepted too.
// Entries that cannot be trusted (missing id, name or start time, out-of-range estimate, duplicate ids) are dropped and
// counted; any structural decode failure is reported as ErrPersistence.
func DecodeSnapshot(data []byte) ([]domain.Activity, int, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, 0, nil
	}

	var raw []domain.Activity
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, 0, fmt.Errorf("%w: decode activity list: %v", domain.ErrPersistence, err)
		}
	} else {
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, 0, fmt.Errorf("%w: decode snapshot: %v", domain.ErrPersistence, err)
		}
		if snap.Version != "" && snap.Version != SnapshotVersion {
			return nil, 0, fmt.Errorf("%w: unsupported snapshot version %q", domain.ErrPersistence, snap.Version)
		}
		raw = snap.Activities
	}

	out := make([]domain.Activity, 0, len(raw))
	seen := map[string]struct{}{}
	dropped := 0
	for _, a := range raw {
		a.ID = strings.TrimSpace(a.ID)
		a.Name = strings.TrimSpace(a.Name)
		if a.ID == "" || a.Name == "" || a.StartTime.IsZero() || !(a.EstimatedMinutes > 0) || a.EstimatedMinutes > domain.MaxEstimateMinutes {
			dropped++
			continue
		}
		if _, ok := seen[a.ID]; ok {
			dropped++
			continue
		}
		status, err := domain.ParseStatus(string(a.Status))
		if err != nil {
			dropped++
			continue
		}
		seen[a.ID] = struct{}{}
		a.Status = status
		a.StartTime = a.StartTime.UTC()
		if a.EndTime == nil {
			a.ActualMinutes = nil
			a.Difference = nil
		}
		if !a.InProgress() {
			a.RemainingSeconds = 0
		}
		out = append(out, a)
	}
	return out, dropped, nil
}
