package app

import (
	"context"
	"time"
)

// systemTicker adapts time.Ticker to the Ticker port.
type systemTicker struct {
	t *time.Ticker
}

// NewSystemTicker returns a wall-clock Ticker firing every interval.
func NewSystemTicker(interval time.Duration) Ticker {
	if interval <= 0 {
		interval = time.Second
	}
	return systemTicker{t: time.NewTicker(interval)}
}

func (s systemTicker) C() <-chan time.Time { return s.t.C }
func (s systemTicker) Stop()               { s.t.Stop() }

// Run drives the countdown of the current generation from ticker until ctx ends or the activity stops
// being active. onTick receives every applied tick.
func (s *Store) Run(ctx context.Context, ticker Ticker, onTick func(TickResult)) error {
	defer ticker.Stop()
	gen := s.Generation()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			res := s.Tick(gen)
			if !res.Applied {
				return nil
			}
			if onTick != nil {
				onTick(res)
			}
		}
	}
}

// Drive keeps running the countdown across activity changes until ctx ends. Each pass builds a fresh
// ticker and follows whichever generation is current when the pass starts.
func (s *Store) Drive(ctx context.Context, newTicker func() Ticker, onTick func(TickResult)) error {
	for {
		if err := s.Run(ctx, newTicker(), onTick); err != nil {
			return err
		}
	}
}
