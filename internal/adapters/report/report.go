package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hylla/timebox/internal/domain"
)

// Summary aggregates estimate accuracy over completed activities.
type Summary struct {
	Total            int     `json:"total"`
	Completed        int     `json:"completed"`
	InProgress       int     `json:"in_progress"`
	EstimatedMinutes float64 `json:"estimated_minutes"`
	ActualMinutes    float64 `json:"actual_minutes"`
	AverageDiff      float64 `json:"average_difference"`
	Over             int     `json:"over"`
	Under            int     `json:"under"`
	OnTarget         int     `json:"on_target"`
}

// Summarize folds the record list into a Summary. Only records with derived values count toward
// the estimate totals.
func Summarize(activities []domain.Activity) Summary {
	var s Summary
	var diffSum float64
	var measured int
	for _, a := range activities {
		s.Total++
		if a.InProgress() {
			s.InProgress++
			continue
		}
		s.Completed++
		if a.ActualMinutes == nil || a.Difference == nil {
			continue
		}
		measured++
		s.EstimatedMinutes += a.EstimatedMinutes
		s.ActualMinutes += *a.ActualMinutes
		diffSum += *a.Difference
		switch {
		case *a.Difference > 0:
			s.Over++
		case *a.Difference < 0:
			s.Under++
		default:
			s.OnTarget++
		}
	}
	if measured > 0 {
		s.AverageDiff = math.Round(diffSum/float64(measured)*10) / 10
	}
	return s
}

// Markdown renders the summary plus the most recent limit records (all when limit <= 0).
func Markdown(activities []domain.Activity, now time.Time, loc *time.Location, limit int) string {
	if loc == nil {
		loc = time.Local
	}
	s := Summarize(activities)
	var b strings.Builder
	fmt.Fprintf(&b, "# Time report\n\n_Generated %s_\n\n", now.In(loc).Format("2006-01-02 15:04"))
	if s.Total == 0 {
		b.WriteString("No activities recorded yet.\n")
		return b.String()
	}

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- **Activities:** %d (%d completed, %d in progress)\n", s.Total, s.Completed, s.InProgress)
	fmt.Fprintf(&b, "- **Estimated:** %s min\n", domain.FormatNumber(s.EstimatedMinutes))
	fmt.Fprintf(&b, "- **Actual:** %s min\n", domain.FormatNumber(s.ActualMinutes))
	fmt.Fprintf(&b, "- **Average difference:** %s%%\n", domain.FormatNumber(s.AverageDiff))
	fmt.Fprintf(&b, "- **Over / under / on target:** %d / %d / %d\n\n", s.Over, s.Under, s.OnTarget)

	b.WriteString("## Activities\n\n")
	b.WriteString("| Activity | Start | Estimated | Actual | Difference | Status |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for idx, a := range activities {
		if limit > 0 && idx >= limit {
			fmt.Fprintf(&b, "\n_%d older activities omitted._\n", len(activities)-limit)
			break
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			escapeCell(a.Name),
			a.StartTime.In(loc).Format("2006-01-02 15:04"),
			domain.FormatNumber(a.EstimatedMinutes),
			optional(a.ActualMinutes, ""),
			optional(a.Difference, "%"),
			a.Status,
		)
	}
	return b.String()
}

func optional(v *float64, suffix string) string {
	if v == nil {
		return "-"
	}
	return domain.FormatNumber(*v) + suffix
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
