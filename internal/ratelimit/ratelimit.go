// Package ratelimit implements the per-connection sliding-window message limiter.
//
// A Limiter holds the server-wide policy (max messages per window). Each
// connection owns a Window holding the timestamps of its recently accepted
// messages. Windows are not safe for concurrent use; the event loop is their
// only caller.
package ratelimit

import (
	"fmt"
	"time"
)

// Limiter is the server-wide sliding-window policy.
type Limiter struct {
	max    int
	window time.Duration
	now    func() time.Time
}

// New creates a Limiter admitting at most max messages per window.
func New(max int, window time.Duration) (*Limiter, error) {
	if max <= 0 {
		return nil, fmt.Errorf("rate limit messages must be positive, got %d", max)
	}
	if window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive, got %s", window)
	}
	return &Limiter{max: max, window: window, now: time.Now}, nil
}

// WithClock returns a copy of l that reads time from now.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	cp := *l
	cp.now = now
	return &cp
}

// Max returns the number of messages admitted per window.
func (l *Limiter) Max() int { return l.max }

// Window returns the window length.
func (l *Limiter) Window() time.Duration { return l.window }

// Window is one connection's record of recently accepted messages, oldest first.
type Window struct {
	times []time.Time
}

// Allow prunes timestamps older than the window and reports whether one more
// message fits. An allowed message is recorded; a rejected one is not.
func (l *Limiter) Allow(w *Window) bool {
	now := l.now()

	keep := 0
	for _, t := range w.times {
		if now.Sub(t) <= l.window {
			w.times[keep] = t
			keep++
		}
	}
	w.times = w.times[:keep]

	if len(w.times) >= l.max {
		return false
	}
	w.times = append(w.times, now)
	return true
}

// Len returns the number of timestamps currently held.
func (w *Window) Len() int {
	if w == nil {
		return 0
	}
	return len(w.times)
}
