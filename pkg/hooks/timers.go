package hooks

import (
	"sync"
	"time"

	"github.com/vango-dev/vango-sdk/pkg/reactive"
)

// IntervalOption configures UseInterval.
type IntervalOption func(*intervalConfig)

type intervalConfig struct {
	immediate bool
}

// Immediate causes the first tick to occur immediately instead of after the
// duration.
func Immediate() IntervalOption {
	return func(c *intervalConfig) {
		c.immediate = true
	}
}

// interval is the per-call-site slot behind UseInterval.
type interval struct {
	done chan struct{}
}

// UseInterval schedules fn every d for as long as sc is alive. The ticker is
// started on the first render and reused on later renders; it stops when the
// scope is disposed.
//
// By default the first tick occurs after d. Use Immediate() to trigger the
// first tick right away.
func UseInterval(sc *reactive.Scope, d time.Duration, fn func(), opts ...IntervalOption) {
	var cfg intervalConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	reactive.UseHook(sc, func() *interval {
		iv := &interval{done: make(chan struct{})}
		sc.OnCleanup(func() { close(iv.done) })

		sc.Go(func() {
			if cfg.immediate {
				select {
				case <-iv.done:
					return
				default:
					fn()
				}
			}

			ticker := time.NewTicker(d)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					fn()
				case <-iv.done:
					return
				}
			}
		})
		return iv
	})
}

// timeout is the per-call-site slot behind UseTimeout.
type timeout struct {
	timer *time.Timer
}

// UseTimeout schedules fn once, d after the first render. Disposing the
// scope before the deadline cancels it.
func UseTimeout(sc *reactive.Scope, d time.Duration, fn func()) {
	reactive.UseHook(sc, func() *timeout {
		to := &timeout{timer: time.AfterFunc(d, fn)}
		sc.OnCleanup(func() { to.timer.Stop() })
		return to
	})
}

// Debouncer coalesces bursts of triggers into one callback after a quiet
// period.
type Debouncer struct {
	d time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// Trigger schedules fn to run once the debounce duration elapses without
// another trigger. A new trigger replaces the pending callback.
func (db *Debouncer) Trigger(fn func()) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return
	}
	if db.timer != nil {
		db.timer.Stop()
	}
	db.timer = time.AfterFunc(db.d, fn)
}

// Cancel drops any pending callback.
func (db *Debouncer) Cancel() {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.timer != nil {
		db.timer.Stop()
		db.timer = nil
	}
}

// close cancels pending work and rejects further triggers.
func (db *Debouncer) close() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.closed = true
	if db.timer != nil {
		db.timer.Stop()
		db.timer = nil
	}
}

// UseDebounce returns a debouncer with the given quiet period, stable across
// renders of sc and cancelled when the scope is disposed.
//
// Typical use is delaying expensive work behind rapid signal updates:
//
//	search := hooks.UseDebounce(sc, 300*time.Millisecond)
//	reactive.CreateEffect(func() reactive.Cleanup {
//	    q := query.Get()
//	    search.Trigger(func() { runSearch(q) })
//	    return nil
//	})
func UseDebounce(sc *reactive.Scope, d time.Duration) *Debouncer {
	return reactive.UseHook(sc, func() *Debouncer {
		db := &Debouncer{d: d}
		sc.OnCleanup(db.close)
		return db
	})
}
