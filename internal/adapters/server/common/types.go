// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hylla/timebox/internal/adapters/report"
	"github.com/hylla/timebox/internal/app"
	"github.com/hylla/timebox/internal/domain"
)

// Tracker is the store surface the transports drive. *app.Store satisfies it.
type Tracker interface {
	Snapshot() []domain.Activity
	Active() (domain.Activity, bool)
	StartActivityInput(ctx context.Context, name, rawMinutes string) (domain.Activity, error)
	CompleteActivity(ctx context.Context) (domain.Activity, error)
	DeleteActivity(ctx context.Context, id string) error
	ApplyEdit(ctx context.Context, id, field, raw string) (domain.Activity, error)
	LastSaveError() error
}

var _ Tracker = (*app.Store)(nil)

// ErrInvalidRequest marks malformed transport input such as a bad JSON body.
var ErrInvalidRequest = errors.New("invalid request")

// ActivityView is the wire shape of one activity record.
type ActivityView struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	EstimatedMinutes float64    `json:"estimated_minutes"`
	ActualMinutes    *float64   `json:"actual_minutes,omitempty"`
	Difference       *float64   `json:"difference_percent,omitempty"`
	Status           string     `json:"status"`
	RemainingSeconds *int       `json:"remaining_seconds,omitempty"`
	Remaining        string     `json:"remaining,omitempty"`
}

// NewActivityView maps a record to its wire shape. Countdown fields are only set while it runs.
func NewActivityView(a domain.Activity) ActivityView {
	a = a.Clone()
	view := ActivityView{
		ID:               a.ID,
		Name:             a.Name,
		StartTime:        a.StartTime,
		EndTime:          a.EndTime,
		EstimatedMinutes: a.EstimatedMinutes,
		ActualMinutes:    a.ActualMinutes,
		Difference:       a.Difference,
		Status:           string(a.Status),
	}
	if a.InProgress() {
		remaining := a.RemainingSeconds
		view.RemainingSeconds = &remaining
		view.Remaining = app.FormatRemaining(remaining)
	}
	return view
}

// NewActivityViews maps a list in order.
func NewActivityViews(activities []domain.Activity) []ActivityView {
	out := make([]ActivityView, 0, len(activities))
	for _, a := range activities {
		out = append(out, NewActivityView(a))
	}
	return out
}

// Status is a point-in-time capture of the tracker.
type Status struct {
	CapturedAt time.Time      `json:"captured_at"`
	Active     *ActivityView  `json:"active,omitempty"`
	Summary    report.Summary `json:"summary"`
}

// CaptureStatus summarizes the tracker at now.
func CaptureStatus(t Tracker, now time.Time) Status {
	status := Status{
		CapturedAt: now.UTC(),
		Summary:    report.Summarize(t.Snapshot()),
	}
	if a, ok := t.Active(); ok {
		view := NewActivityView(a)
		status.Active = &view
	}
	return status
}

// StartRequest starts an activity. EstimatedMinutes accepts a JSON number or numeric string.
type StartRequest struct {
	Name             string      `json:"name"`
	EstimatedMinutes json.Number `json:"estimated_minutes"`
}

// EditRequest rewrites one field of an activity.
type EditRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Start begins an activity and reports a failed save as a persistence error.
func Start(ctx context.Context, t Tracker, req StartRequest) (ActivityView, error) {
	a, err := t.StartActivityInput(ctx, req.Name, req.EstimatedMinutes.String())
	if err != nil {
		return ActivityView{}, err
	}
	return NewActivityView(a), saved(t)
}

// Complete finishes the active activity.
func Complete(ctx context.Context, t Tracker) (ActivityView, error) {
	a, err := t.CompleteActivity(ctx)
	if err != nil {
		return ActivityView{}, err
	}
	return NewActivityView(a), saved(t)
}

// Edit applies one field edit.
func Edit(ctx context.Context, t Tracker, id string, req EditRequest) (ActivityView, error) {
	a, err := t.ApplyEdit(ctx, id, req.Field, req.Value)
	if err != nil {
		return ActivityView{}, err
	}
	return NewActivityView(a), saved(t)
}

// Delete removes one finished activity.
func Delete(ctx context.Context, t Tracker, id string) error {
	if err := t.DeleteActivity(ctx, id); err != nil {
		return err
	}
	return saved(t)
}

func saved(t Tracker) error {
	if err := t.LastSaveError(); err != nil {
		return errors.Join(domain.ErrPersistence, err)
	}
	return nil
}

// ErrorCode maps an error onto the stable code both transports report.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return "unknown_error"
	case errors.Is(err, domain.ErrPersistence):
		return "persistence_failed"
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, domain.ErrValidation):
		return "invalid_request"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "internal_error"
	}
}
