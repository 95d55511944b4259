package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hylla/timebox/internal/app"
)

// failingBlobs rejects every save.
type failingBlobs struct{}

func (failingBlobs) LoadBlob(context.Context, string) ([]byte, error) { return nil, app.ErrBlobNotFound }
func (failingBlobs) SaveBlob(context.Context, string, []byte) error  { return errors.New("disk full") }

// scrape fetches the metrics page from handler.
func scrape(t *testing.T, handler http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return string(body)
}

func TestHandlerExportsTrackerState(t *testing.T) {
	now := time.Date(2026, 2, 24, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := app.NewStore(nil, app.WithClock(clock))
	ctx := context.Background()

	if _, err := store.StartActivity(ctx, "Review", 30); err != nil {
		t.Fatalf("StartActivity() error = %v", err)
	}
	now = now.Add(45 * time.Minute)
	if _, err := store.CompleteActivity(ctx); err != nil {
		t.Fatalf("CompleteActivity() error = %v", err)
	}
	if _, err := store.StartActivity(ctx, "Write", 10); err != nil {
		t.Fatalf("StartActivity() error = %v", err)
	}

	handler, err := Handler(store)
	if err != nil {
		t.Fatalf("Handler() error = %v", err)
	}
	body := scrape(t, handler)
	for _, want := range []string{
		`timebox_activities{status="completed"} 1`,
		`timebox_activities{status="in-progress"} 1`,
		`timebox_active_remaining_seconds 600`,
		`timebox_completed_estimated_minutes 30`,
		`timebox_completed_actual_minutes 45`,
		`timebox_completed_average_difference_percent 50`,
		`timebox_completed_outcomes{outcome="over"} 1`,
		`timebox_completed_outcomes{outcome="under"} 0`,
		`timebox_persistence_last_save_failed 0`,
		`go_goroutines`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in scrape output:\n%s", want, body)
		}
	}
}

func TestHandlerOmitsRemainingWhenIdle(t *testing.T) {
	handler, err := Handler(app.NewStore(nil))
	if err != nil {
		t.Fatalf("Handler() error = %v", err)
	}
	body := scrape(t, handler)
	if strings.Contains(body, "timebox_active_remaining_seconds ") {
		t.Fatalf("expected no countdown gauge while idle:\n%s", body)
	}
	if !strings.Contains(body, `timebox_activities{status="in-progress"} 0`) {
		t.Fatalf("expected zero in-progress gauge:\n%s", body)
	}
}

func TestHandlerReportsSaveFailure(t *testing.T) {
	store := app.NewStore(failingBlobs{})
	if _, err := store.StartActivity(context.Background(), "Doomed", 5); err != nil {
		t.Fatalf("StartActivity() error = %v", err)
	}
	handler, err := Handler(store)
	if err != nil {
		t.Fatalf("Handler() error = %v", err)
	}
	if body := scrape(t, handler); !strings.Contains(body, "timebox_persistence_last_save_failed 1") {
		t.Fatalf("expected save failure gauge:\n%s", body)
	}
}
