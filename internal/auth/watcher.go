package auth

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ProbeInterval is how often the token liveness probe runs.
const ProbeInterval = 5 * time.Second

// Watcher enforces session validity while the app runs: it probes token
// liveness on a fixed interval, runs an auto-logout timer at the JWT expiry,
// and fires OnLogout exactly once when either says the session is dead.
// Cancelling the context stops both timers; no ticks leak past teardown.
type Watcher struct {
	// Check probes the server; a non-nil error means the token is invalid.
	Check func(ctx context.Context) error
	// Expiry is the JWT expiry; zero disables the expiry timer (malformed or
	// claimless tokens fall back to probe-only enforcement).
	Expiry time.Time
	// OnLogout runs once, on the watcher goroutine, when the session dies.
	OnLogout func()

	Interval time.Duration
	Log      *zap.Logger

	once sync.Once
}

// Run blocks until ctx is cancelled or the session dies. The first probe runs
// immediately, then every Interval.
func (w *Watcher) Run(ctx context.Context) {
	if w.Interval <= 0 {
		w.Interval = ProbeInterval
	}
	if w.Log == nil {
		w.Log = zap.NewNop()
	}

	var expiryC <-chan time.Time
	if !w.Expiry.IsZero() {
		d := time.Until(w.Expiry)
		if d <= 0 {
			w.Log.Info("token already expired")
			w.fire()
			return
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		expiryC = timer.C
	}

	if !w.probe(ctx) {
		return
	}

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-expiryC:
			w.Log.Info("token reached expiry")
			w.fire()
			return
		case <-ticker.C:
			if !w.probe(ctx) {
				return
			}
		}
	}
}

// probe returns false when the watcher should stop.
func (w *Watcher) probe(ctx context.Context) bool {
	if w.Check == nil {
		return true
	}
	if err := w.Check(ctx); err != nil {
		if ctx.Err() != nil {
			return false
		}
		w.Log.Warn("token liveness probe failed", zap.Error(err))
		w.fire()
		return false
	}
	return true
}

func (w *Watcher) fire() {
	w.once.Do(func() {
		if w.OnLogout != nil {
			w.OnLogout()
		}
	})
}
