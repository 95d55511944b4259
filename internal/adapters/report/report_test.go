package report

import (
	"strings"
	"testing"
	"time"

	"github.com/hylla/timebox/internal/domain"
)

func completed(t *testing.T, id string, estimate int, took time.Duration) domain.Activity {
	t.Helper()
	start := time.Date(2026, 2, 21, 9, 0, 0, 0, time.UTC)
	a, err := domain.NewActivity(id, "task "+id, estimate, start)
	if err != nil {
		t.Fatalf("NewActivity() error = %v", err)
	}
	a.Complete(start.Add(took))
	return a
}

func TestSummarize(t *testing.T) {
	running, err := domain.NewActivity("r", "running", 5, time.Now())
	if err != nil {
		t.Fatalf("NewActivity() error = %v", err)
	}
	got := Summarize([]domain.Activity{
		running,
		completed(t, "a", 10, 15*time.Minute),
		completed(t, "b", 20, 10*time.Minute),
		completed(t, "c", 30, 30*time.Minute),
	})
	if got.Total != 4 || got.Completed != 3 || got.InProgress != 1 {
		t.Fatalf("unexpected counts %+v", got)
	}
	if got.EstimatedMinutes != 60 || got.ActualMinutes != 55 {
		t.Fatalf("unexpected totals %+v", got)
	}
	if got.Over != 1 || got.Under != 1 || got.OnTarget != 1 {
		t.Fatalf("unexpected buckets %+v", got)
	}
	// (50 + -50 + 0) / 3
	if got.AverageDiff != 0 {
		t.Fatalf("unexpected average %v", got.AverageDiff)
	}
}

func TestMarkdown(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	if md := Markdown(nil, now, time.UTC, 0); !strings.Contains(md, "No activities recorded yet.") {
		t.Fatalf("expected empty report, got %q", md)
	}

	a := completed(t, "a", 10, 15*time.Minute)
	a.Name = "pipe|name"
	md := Markdown([]domain.Activity{a, completed(t, "b", 20, 10*time.Minute)}, now, time.UTC, 1)
	for _, want := range []string{
		"# Time report",
		"- **Activities:** 2 (2 completed, 0 in progress)",
		`| pipe\|name | 2026-02-21 09:00 | 10 | 15 | 50% | completed |`,
		"_1 older activities omitted._",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in report:\n%s", want, md)
		}
	}
}

func TestRendererFallsBackOnEmpty(t *testing.T) {
	var r Renderer
	if got := r.Render("   ", 80); got != "" {
		t.Fatalf("expected empty render, got %q", got)
	}
	out := r.Render("# Title\n\nbody", 10)
	if !strings.Contains(out, "Title") {
		t.Fatalf("expected rendered title, got %q", out)
	}
	if r.width != minWrapWidth {
		t.Fatalf("expected wrap width clamp, got %d", r.width)
	}
}
