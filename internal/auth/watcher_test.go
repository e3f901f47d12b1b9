package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcherFiresOnceOnFailedProbe(t *testing.T) {
	var fired int32
	var probes int32
	w := &Watcher{
		Check: func(ctx context.Context) error {
			if atomic.AddInt32(&probes, 1) >= 2 {
				return errors.New("401")
			}
			return nil
		},
		OnLogout: func() { atomic.AddInt32(&fired, 1) },
		Interval: 5 * time.Millisecond,
	}

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after failed probe")
	}
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("OnLogout fired %d times, want 1", got)
	}
}

func TestWatcherFiresImmediatelyOnExpiredToken(t *testing.T) {
	fired := make(chan struct{})
	w := &Watcher{
		Expiry:   time.Now().Add(-time.Minute),
		OnLogout: func() { close(fired) },
		Interval: time.Hour,
	}
	go w.Run(context.Background())
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("expired token did not trigger logout")
	}
}

func TestWatcherExpiryTimerFires(t *testing.T) {
	fired := make(chan struct{})
	w := &Watcher{
		Check:    func(ctx context.Context) error { return nil },
		Expiry:   time.Now().Add(30 * time.Millisecond),
		OnLogout: func() { close(fired) },
		Interval: time.Hour, // probes stay out of the way
	}
	go w.Run(context.Background())
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("expiry timer did not fire")
	}
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	var fired int32
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		Check:    func(ctx context.Context) error { return nil },
		OnLogout: func() { atomic.AddInt32(&fired, 1) },
		Interval: 5 * time.Millisecond,
	}
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatal("cancellation triggered a logout")
	}
}

func TestWatcherTreatsCancelDuringProbeAsShutdown(t *testing.T) {
	var fired int32
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		Check: func(ctx context.Context) error {
			cancel()
			return ctx.Err()
		},
		OnLogout: func() { atomic.AddInt32(&fired, 1) },
		Interval: time.Hour,
	}
	w.Run(ctx)
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatal("probe failure caused by our own cancel triggered a logout")
	}
}
