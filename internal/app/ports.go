package app

import (
	"context"
	"time"
)

// BlobStore persists one opaque value per key, read whole and written whole.
type BlobStore interface {
	LoadBlob(context.Context, string) ([]byte, error)
	SaveBlob(context.Context, string, []byte) error
}

// Alert describes one overtime notification. Live reports whether the alert still belongs to the
// running countdown; delayed continuations must check it before acting.
type Alert struct {
	ActivityID string
	Name       string
	Generation uint64
	Live       func() bool
}

// Notifier surfaces the overtime transition to the user.
type Notifier interface {
	Overtime(Alert)
	Cancel()
}

// Ticker delivers one signal per tick until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// nopNotifier is used when no notifier is configured.
type nopNotifier struct{}

func (nopNotifier) Overtime(Alert) {}
func (nopNotifier) Cancel()        {}

// Logger receives structured runtime events. *log.Logger from charmbracelet/log satisfies it.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}
