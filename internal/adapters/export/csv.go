package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hylla/timebox/internal/domain"
)

// Header is the fixed first row of every export.
var Header = []string{
	"Activity",
	"Start Time",
	"End Time",
	"Estimated (min)",
	"Actual (min)",
	"Difference (%)",
	"Status",
}

// ErrMalformed reports a CSV document that does not match the export layout.
var ErrMalformed = errors.New("malformed activity csv")

// timeLayout is the timestamp format written to the export.
const timeLayout = time.RFC3339

// FileName returns the dated export file name for now.
func FileName(now time.Time) string {
	return "time-tracker-export-" + now.Format("2006-01-02") + ".csv"
}

// WriteCSV writes activities in list order. Timestamps are rendered in loc; absent values are empty.
func WriteCSV(w io.Writer, activities []domain.Activity, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, a := range activities {
		if err := cw.Write(row(a, loc)); err != nil {
			return fmt.Errorf("write csv row %q: %w", a.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Bytes renders the whole export in memory.
func Bytes(activities []domain.Activity, loc *time.Location) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, activities, loc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes the export into dir under FileName(now) and returns its path.
func WriteFile(dir string, now time.Time, activities []domain.Activity, loc *time.Location) (string, error) {
	data, err := Bytes(activities, loc)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, FileName(now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

func row(a domain.Activity, loc *time.Location) []string {
	end := ""
	if a.EndTime != nil {
		end = a.EndTime.In(loc).Format(timeLayout)
	}
	return []string{
		a.Name,
		a.StartTime.In(loc).Format(timeLayout),
		end,
		domain.FormatNumber(a.EstimatedMinutes),
		optionalNumber(a.ActualMinutes),
		optionalNumber(a.Difference),
		string(a.Status),
	}
}

func optionalNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return domain.FormatNumber(*v)
}

// ParseCSV reads an export back into records. Ids are not part of the export and stay empty.
func ParseCSV(r io.Reader) ([]domain.Activity, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header", ErrMalformed)
	}
	for idx, col := range Header {
		if records[0][idx] != col {
			return nil, fmt.Errorf("%w: unexpected header %q", ErrMalformed, records[0][idx])
		}
	}
	out := make([]domain.Activity, 0, len(records)-1)
	for line, rec := range records[1:] {
		a, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformed, line+2, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func parseRow(rec []string) (domain.Activity, error) {
	start, err := time.Parse(timeLayout, rec[1])
	if err != nil {
		return domain.Activity{}, fmt.Errorf("start time: %w", err)
	}
	estimate, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("estimate: %w", err)
	}
	status, err := domain.ParseStatus(rec[6])
	if err != nil {
		return domain.Activity{}, err
	}
	a := domain.Activity{
		Name:             rec[0],
		StartTime:        start.UTC(),
		EstimatedMinutes: estimate,
		Status:           status,
	}
	if rec[2] != "" {
		end, err := time.Parse(timeLayout, rec[2])
		if err != nil {
			return domain.Activity{}, fmt.Errorf("end time: %w", err)
		}
		end = end.UTC()
		a.EndTime = &end
	}
	if a.ActualMinutes, err = parseOptional(rec[4]); err != nil {
		return domain.Activity{}, fmt.Errorf("actual: %w", err)
	}
	if a.Difference, err = parseOptional(rec[5]); err != nil {
		return domain.Activity{}, fmt.Errorf("difference: %w", err)
	}
	return a, nil
}

func parseOptional(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
