package domain

import (
	"slices"
	"strings"
	"time"
)

// Status is the lifecycle state of an activity record.
type Status string

const (
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

var validStatuses = []Status{StatusInProgress, StatusCompleted}

// MaxEstimateMinutes caps estimates at one week so countdown seconds stay well inside int range.
const MaxEstimateMinutes = 7 * 24 * 60

// ParseStatus normalizes and validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !slices.Contains(validStatuses, status) {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// Activity is one tracked block of work: an estimate, the time it really took and how far off it was.
type Activity struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	StartTime        time.Time  `json:"startTime"`
	EndTime          *time.Time `json:"endTime,omitempty"`
	EstimatedMinutes float64    `json:"estimatedMinutes"`
	ActualMinutes    *float64   `json:"actualMinutes,omitempty"`
	Difference       *float64   `json:"difference,omitempty"`
	Status           Status     `json:"status"`
	RemainingSeconds int        `json:"remainingSeconds,omitempty"`
}

// NewActivity constructs an in-progress activity whose countdown starts at the full estimate.
func NewActivity(id, name string, estimatedMinutes int, now time.Time) (Activity, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return Activity{}, ErrInvalidID
	}
	if name == "" {
		return Activity{}, ErrInvalidName
	}
	if estimatedMinutes <= 0 || estimatedMinutes > MaxEstimateMinutes {
		return Activity{}, ErrInvalidEstimate
	}
	return Activity{
		ID:               id,
		Name:             name,
		StartTime:        now.UTC(),
		EstimatedMinutes: float64(estimatedMinutes),
		Status:           StatusInProgress,
		RemainingSeconds: estimatedMinutes * 60,
	}, nil
}

// InProgress reports whether the record is still running.
func (a Activity) InProgress() bool {
	return a.Status == StatusInProgress
}

// Complete stamps the end time and recomputes the derived fields.
func (a *Activity) Complete(now time.Time) {
	end := now.UTC()
	a.EndTime = &end
	a.Status = StatusCompleted
	a.RemainingSeconds = 0
	a.Recompute()
}

// Reopen puts a completed record back in progress with a countdown measured from its start time.
func (a *Activity) Reopen(now time.Time) {
	a.EndTime = nil
	a.ActualMinutes = nil
	a.Difference = nil
	a.Status = StatusInProgress
	a.RemainingSeconds = a.RemainingAt(now)
}

// RemainingAt returns the countdown value the record would show at now.
func (a Activity) RemainingAt(now time.Time) int {
	deadline := a.StartTime.Add(time.Duration(a.EstimatedMinutes * float64(time.Minute)))
	return int(deadline.Sub(now).Truncate(time.Second) / time.Second)
}

// Clone returns a deep copy so callers never share pointer fields with the store.
func (a Activity) Clone() Activity {
	out := a
	out.EndTime = cloneTime(a.EndTime)
	out.ActualMinutes = cloneFloat(a.ActualMinutes)
	out.Difference = cloneFloat(a.Difference)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
