// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gate

import (
	"context"
	"time"
)

const defaultTick = time.Second

// Countdown counts the payment wait time down and succeeds on manual
// confirm. It never times out on its own.
type Countdown struct {
	// Tick is the countdown granularity (default 1s).
	Tick time.Duration

	// RequireElapsed rejects confirm while seconds remain.
	RequireElapsed bool
}

// Name returns "countdown".
func (Countdown) Name() string { return "countdown" }

// CanConfirm is true once the timer reached zero, or at any time when
// RequireElapsed is off.
func (s Countdown) CanConfirm(remaining int) bool {
	return !s.RequireElapsed || remaining <= 0
}

// Await decrements the remaining seconds once per tick until a confirm
// arrives or ctx ends.
func (s Countdown) Await(ctx context.Context, c *Cycle) (Outcome, error) {
	tick := s.Tick
	if tick <= 0 {
		tick = defaultTick
	}
	remaining := c.Settings.WaitSeconds()

	var tickC <-chan time.Time
	if remaining > 0 {
		t := time.NewTicker(tick)
		defer t.Stop()
		tickC = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return OutcomeCancelled, ctx.Err()
		case <-c.Confirmed():
			return OutcomeSucceeded, nil
		case <-tickC:
			remaining--
			if !c.SetRemaining(remaining) {
				return OutcomeCancelled, ctx.Err()
			}
			if remaining <= 0 {
				tickC = nil
			}
		}
	}
}
