package domain

import (
	"math"
	"time"
)

// Recompute derives ActualMinutes and Difference from the timestamps and the estimate.
// Both fields are cleared together while EndTime is absent.
func (a *Activity) Recompute() {
	if a.EndTime == nil || a.StartTime.IsZero() {
		a.ActualMinutes = nil
		a.Difference = nil
		return
	}
	actual := ElapsedMinutes(a.StartTime, *a.EndTime)
	a.ActualMinutes = &actual
	a.RecomputeDifference()
}

// RecomputeDifference refreshes Difference from the current estimate and actual minutes.
func (a *Activity) RecomputeDifference() {
	if a.ActualMinutes == nil || a.EstimatedMinutes <= 0 {
		a.Difference = nil
		return
	}
	diff := DifferencePercent(*a.ActualMinutes, a.EstimatedMinutes)
	a.Difference = &diff
}

// ElapsedMinutes returns end-start in minutes rounded to two decimals.
func ElapsedMinutes(start, end time.Time) float64 {
	return roundTo(float64(end.Sub(start).Milliseconds())/60000, 2)
}

// DifferencePercent returns how far actual overshot (positive) or undershot (negative) the estimate,
// in percent rounded to one decimal.
func DifferencePercent(actual, estimated float64) float64 {
	return roundTo((actual-estimated)/estimated*100, 1)
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	out := math.Round(v*scale) / scale
	if out == 0 {
		// Avoid rendering -0.
		return 0
	}
	return out
}
