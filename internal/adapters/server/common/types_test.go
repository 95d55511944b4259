package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hylla/timebox/internal/app"
	"github.com/hylla/timebox/internal/domain"
)

// failingBlobs accepts loads and rejects every save.
type failingBlobs struct{}

func (failingBlobs) LoadBlob(context.Context, string) ([]byte, error) {
	return nil, app.ErrBlobNotFound
}

func (failingBlobs) SaveBlob(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestStartCompleteAndStatus(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	store := app.NewStore(nil, app.WithClock(func() time.Time { return now }))

	view, err := Start(ctx, store, StartRequest{Name: "Write report", EstimatedMinutes: "25"})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if view.Status != string(domain.StatusInProgress) || view.Remaining != "25:00" || view.RemainingSeconds == nil || *view.RemainingSeconds != 1500 {
		t.Fatalf("unexpected started view %#v", view)
	}

	status := CaptureStatus(store, now)
	if status.Active == nil || status.Active.ID != view.ID {
		t.Fatalf("expected active in status, got %#v", status)
	}
	if status.Summary.Total != 1 || status.Summary.InProgress != 1 {
		t.Fatalf("unexpected summary %#v", status.Summary)
	}

	done, err := Complete(ctx, store)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if done.RemainingSeconds != nil || done.Remaining != "" || done.ActualMinutes == nil {
		t.Fatalf("completed view should drop countdown fields, got %#v", done)
	}
	if status := CaptureStatus(store, now); status.Active != nil {
		t.Fatalf("expected no active after completion, got %#v", status.Active)
	}
}

func TestMutationsReportSaveFailure(t *testing.T) {
	ctx := context.Background()
	store := app.NewStore(failingBlobs{})
	_, err := Start(ctx, store, StartRequest{Name: "Tea", EstimatedMinutes: "5"})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("Start() error = %v, want persistence error", err)
	}
	if got := ErrorCode(err); got != "persistence_failed" {
		t.Fatalf("ErrorCode() = %q, want persistence_failed", got)
	}
	if _, ok := store.Active(); !ok {
		t.Fatal("the start must stand in memory even when the save fails")
	}
}

func TestEditAndDelete(t *testing.T) {
	ctx := context.Background()
	store := app.NewStore(nil)
	view, err := Start(ctx, store, StartRequest{Name: "Tea", EstimatedMinutes: "25"})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := Delete(ctx, store, view.ID); !errors.Is(err, domain.ErrDeleteActive) {
		t.Fatalf("Delete(active) error = %v", err)
	}
	if _, err := Complete(ctx, store); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	edited, err := Edit(ctx, store, view.ID, EditRequest{Field: "name", Value: "Green tea"})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if edited.Name != "Green tea" {
		t.Fatalf("Name = %q, want Green tea", edited.Name)
	}
	if err := Delete(ctx, store, view.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got := len(store.Snapshot()); got != 0 {
		t.Fatalf("expected empty store, got %d records", got)
	}
}

func TestErrorCode(t *testing.T) {
	cases := map[string]error{
		"unknown_error":      nil,
		"invalid_request":    errors.Join(ErrInvalidRequest, errors.New("bad json")),
		"conflict":           domain.ErrActivityActive,
		"not_found":          domain.ErrActivityNotFound,
		"persistence_failed": errors.Join(domain.ErrPersistence, errors.New("disk")),
		"internal_error":     errors.New("boom"),
	}
	for want, err := range cases {
		if got := ErrorCode(err); got != want {
			t.Fatalf("ErrorCode(%v) = %q, want %q", err, got, want)
		}
	}
	if got := ErrorCode(domain.ErrInvalidName); got != "invalid_request" {
		t.Fatalf("ErrorCode(validation) = %q, want invalid_request", got)
	}
}
