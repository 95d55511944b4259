package domain

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// Field names an editable activity attribute.
type Field string

const (
	FieldName             Field = "name"
	FieldStartTime        Field = "startTime"
	FieldEndTime          Field = "endTime"
	FieldEstimatedMinutes Field = "estimatedMinutes"
	FieldActualMinutes    Field = "actualMinutes"
	FieldStatus           Field = "status"
)

// EditableFields lists fields in the order the UI cycles through them.
var EditableFields = []Field{
	FieldName,
	FieldStartTime,
	FieldEndTime,
	FieldEstimatedMinutes,
	FieldActualMinutes,
	FieldStatus,
}

// ParseField accepts the canonical camelCase name as well as snake_case and lowercase spellings.
func ParseField(raw string) (Field, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), "_", ""))
	for _, f := range EditableFields {
		if strings.ToLower(string(f)) == key {
			return f, nil
		}
	}
	return "", ErrInvalidField
}

// timeLayouts are tried in order when parsing edited timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTime parses a user-entered timestamp; layouts without a zone are read in loc.
func ParseTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidStartTime
}

// FieldValue renders the current value of a field the way the edit input expects it back.
func (a Activity) FieldValue(field Field, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	switch field {
	case FieldName:
		return a.Name
	case FieldStartTime:
		return a.StartTime.In(loc).Format("2006-01-02 15:04:05")
	case FieldEndTime:
		if a.EndTime == nil {
			return ""
		}
		return a.EndTime.In(loc).Format("2006-01-02 15:04:05")
	case FieldEstimatedMinutes:
		return FormatNumber(a.EstimatedMinutes)
	case FieldActualMinutes:
		if a.ActualMinutes == nil {
			return ""
		}
		return FormatNumber(*a.ActualMinutes)
	case FieldStatus:
		return string(a.Status)
	default:
		return ""
	}
}

// ApplyField validates raw and writes it into field, recomputing derived values.
// On error the activity is left untouched.
func (a *Activity) ApplyField(field Field, raw string, now time.Time, loc *time.Location) error {
	next := a.Clone()
	switch field {
	case FieldName:
		name := strings.TrimSpace(raw)
		if name == "" {
			return ErrInvalidName
		}
		next.Name = name

	case FieldEstimatedMinutes:
		v, err := parseNumber(raw)
		if err != nil || v <= 0 || v > MaxEstimateMinutes {
			return ErrInvalidEstimate
		}
		next.EstimatedMinutes = v
		next.RecomputeDifference()
		if next.InProgress() {
			next.RemainingSeconds = next.RemainingAt(now)
		}

	case FieldActualMinutes:
		v, err := parseNumber(raw)
		if err != nil || v < 0 {
			return ErrInvalidActual
		}
		if next.EndTime == nil {
			return ErrActualWithoutEnd
		}
		next.ActualMinutes = &v
		next.RecomputeDifference()

	case FieldStartTime:
		if strings.TrimSpace(raw) == "" {
			return ErrInvalidStartTime
		}
		start, err := ParseTime(raw, loc)
		if err != nil {
			return ErrInvalidStartTime
		}
		if next.EndTime != nil && next.EndTime.Before(start) {
			return ErrInvalidStartTime
		}
		next.StartTime = start
		next.Recompute()
		if next.InProgress() {
			next.RemainingSeconds = next.RemainingAt(now)
		}

	case FieldEndTime:
		if strings.TrimSpace(raw) == "" {
			next.EndTime = nil
			next.Recompute()
			break
		}
		if next.InProgress() {
			return ErrInvalidEndTime
		}
		end, err := ParseTime(raw, loc)
		if err != nil || end.Before(next.StartTime) {
			return ErrInvalidEndTime
		}
		next.EndTime = &end
		next.Recompute()

	case FieldStatus:
		status, err := ParseStatus(raw)
		if err != nil {
			return err
		}
		switch {
		case status == next.Status:
		case status == StatusCompleted:
			next.Complete(now)
		default:
			next.Reopen(now)
		}

	default:
		return ErrInvalidField
	}
	*a = next
	return nil
}

// FormatNumber renders minutes without trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseNumber(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

var errNotFinite = errors.New("number is not finite")
