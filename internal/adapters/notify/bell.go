package notify

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hylla/timebox/internal/app"
)

// Default bell sequence settings.
const (
	DefaultBeeps    = 3
	DefaultInterval = 400 * time.Millisecond
)

// bellSeq is the terminal bell control character.
const bellSeq = "\a"

// Bell rings the terminal bell when an activity runs past its estimate. The first beep is written
// immediately; the rest are scheduled and dropped once the alert stops being live.
type Bell struct {
	mu       sync.Mutex
	out      io.Writer
	beeps    int
	interval time.Duration
	logger   app.Logger
	pending  []*time.Timer
	after    func(time.Duration, func()) *time.Timer
}

// BellOption configures a Bell.
type BellOption func(*Bell)

// WithBeeps sets how many beeps one alert produces.
func WithBeeps(n int) BellOption {
	return func(b *Bell) {
		if n > 0 {
			b.beeps = n
		}
	}
}

// WithInterval sets the delay between beeps.
func WithInterval(d time.Duration) BellOption {
	return func(b *Bell) {
		if d > 0 {
			b.interval = d
		}
	}
}

// WithLogger records each alert.
func WithLogger(logger app.Logger) BellOption {
	return func(b *Bell) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBell constructs a bell writing to out.
func NewBell(out io.Writer, opts ...BellOption) *Bell {
	b := &Bell{
		out:      out,
		beeps:    DefaultBeeps,
		interval: DefaultInterval,
		logger:   log.New(io.Discard),
		after:    time.AfterFunc,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Overtime starts the beep sequence for alert.
func (b *Bell) Overtime(alert app.Alert) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopPendingLocked()
	b.logger.Info("activity overtime", "id", alert.ActivityID, "name", alert.Name)
	b.ringLocked()
	for i := 1; i < b.beeps; i++ {
		var t *time.Timer
		t = b.after(time.Duration(i)*b.interval, func() {
			// Live takes the store lock, so it must be checked without holding the bell lock.
			if alert.Live != nil && !alert.Live() {
				return
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			if !b.pendingLocked(t) {
				return
			}
			b.ringLocked()
		})
		b.pending = append(b.pending, t)
	}
}

// Cancel drops every beep not yet rung.
func (b *Bell) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopPendingLocked()
}

func (b *Bell) ringLocked() {
	if b.out == nil {
		return
	}
	if _, err := io.WriteString(b.out, bellSeq); err != nil {
		b.logger.Debug("bell write failed", "err", err)
	}
}

func (b *Bell) pendingLocked(t *time.Timer) bool {
	for _, p := range b.pending {
		if p == t {
			return true
		}
	}
	return false
}

func (b *Bell) stopPendingLocked() {
	for _, t := range b.pending {
		t.Stop()
	}
	b.pending = nil
}

var _ app.Notifier = (*Bell)(nil)
