package tui

import (
	"strings"
	"time"
)

type Option func(*Model)

// WithWarningThreshold sets the countdown window rendered with the warning tone.
func WithWarningThreshold(d time.Duration) Option {
	return func(m *Model) {
		if d >= 0 {
			m.warning = d
		}
	}
}

// WithExportDir sets where x writes CSV files.
func WithExportDir(dir string) Option {
	return func(m *Model) {
		if dir = strings.TrimSpace(dir); dir != "" {
			m.exportDir = dir
		}
	}
}

// WithLocation sets the zone timestamps are shown and edited in.
func WithLocation(loc *time.Location) Option {
	return func(m *Model) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithClock overrides the time source used for export file names.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// WithClipboard overrides the clipboard writer used by y.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyToClipboard = write
		}
	}
}

// WithTickInterval sets the countdown tick period.
func WithTickInterval(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.tickInterval = d
		}
	}
}
