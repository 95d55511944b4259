package app

import (
	"fmt"
	"time"
)

// TimerState is the countdown phase of the active activity.
type TimerState int

const (
	TimerIdle TimerState = iota
	TimerCounting
	TimerOvertime
)

// String returns the lowercase state name.
func (s TimerState) String() string {
	switch s {
	case TimerCounting:
		return "counting"
	case TimerOvertime:
		return "overtime"
	default:
		return "idle"
	}
}

// Timer tracks the countdown phase and the generation that stamps ticks and alerts.
// It holds no lock of its own; Store serializes every call.
type Timer struct {
	state      TimerState
	generation uint64
	alerted    bool
}

// State returns the current phase.
func (t *Timer) State() TimerState {
	return t.state
}

// Generation returns the stamp that live ticks and alerts must carry.
func (t *Timer) Generation() uint64 {
	return t.generation
}

// start begins a new countdown generation. A countdown restored past zero enters overtime
// without alerting; the zero crossing already happened.
func (t *Timer) start(remaining int) uint64 {
	t.generation++
	t.alerted = remaining <= 0
	t.state = phaseFor(remaining)
	return t.generation
}

// retarget follows an edit that moved the deadline of the running countdown. An edit that lands at
// or past zero counts as the crossing and does not alert; moving back above zero re-arms the alert.
func (t *Timer) retarget(remaining int) {
	if t.state == TimerIdle {
		return
	}
	t.alerted = remaining <= 0
	t.state = phaseFor(remaining)
}

// observe records the countdown value after a tick and reports whether this tick is the
// one that crossed into overtime.
func (t *Timer) observe(remaining int) bool {
	if t.state == TimerIdle {
		return false
	}
	t.state = phaseFor(remaining)
	if t.state == TimerOvertime && !t.alerted {
		t.alerted = true
		return true
	}
	return false
}

// stop moves to idle. Calling it while idle changes nothing.
func (t *Timer) stop() bool {
	if t.state == TimerIdle {
		return false
	}
	t.generation++
	t.state = TimerIdle
	t.alerted = false
	return true
}

func phaseFor(remaining int) TimerState {
	if remaining > 0 {
		return TimerCounting
	}
	return TimerOvertime
}

// TickResult reports what one tick did.
type TickResult struct {
	Applied          bool
	ActivityID       string
	State            TimerState
	RemainingSeconds int
	EnteredOvertime  bool
}

// Tone selects how the countdown is styled.
type Tone int

const (
	ToneNormal Tone = iota
	ToneWarning
	ToneExpired
)

// DefaultWarningThreshold is the remaining time below which the countdown is shown as a warning.
const DefaultWarningThreshold = time.Minute

// DisplayTone classifies a countdown value for rendering.
func DisplayTone(remainingSeconds int, warning time.Duration) Tone {
	if warning <= 0 {
		warning = DefaultWarningThreshold
	}
	switch {
	case remainingSeconds < 0:
		return ToneExpired
	case remainingSeconds > 0 && remainingSeconds < int(warning/time.Second):
		return ToneWarning
	default:
		return ToneNormal
	}
}

// FormatRemaining renders seconds as MM:SS, prefixed with "-" in overtime.
func FormatRemaining(remainingSeconds int) string {
	sign := ""
	abs := remainingSeconds
	if abs < 0 {
		sign = "-"
		abs = -abs
	}
	return fmt.Sprintf("%s%02d:%02d", sign, abs/60, abs%60)
}
