package hooks

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/vango-dev/vango-sdk/pkg/reactive"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestUseIntervalTicks(t *testing.T) {
	sc := reactive.NewScope(nil)
	defer sc.Dispose()

	var ticks atomic.Int64
	sc.BeginRender()
	UseInterval(sc, 5*time.Millisecond, func() {
		ticks.Add(1)
	})

	waitFor(t, "at least 2 ticks", func() bool {
		return ticks.Load() >= 2
	})
}

func TestUseIntervalImmediate(t *testing.T) {
	sc := reactive.NewScope(nil)
	defer sc.Dispose()

	var ticks atomic.Int64
	sc.BeginRender()
	UseInterval(sc, time.Hour, func() {
		ticks.Add(1)
	}, Immediate())

	waitFor(t, "the immediate tick", func() bool {
		return ticks.Load() == 1
	})
}

func TestUseIntervalStopsOnDispose(t *testing.T) {
	sc := reactive.NewScope(nil)

	var ticks atomic.Int64
	sc.BeginRender()
	UseInterval(sc, 5*time.Millisecond, func() {
		ticks.Add(1)
	})

	waitFor(t, "a tick", func() bool { return ticks.Load() >= 1 })
	sc.Dispose()

	settled := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	if got := ticks.Load(); got > settled+1 {
		t.Errorf("interval kept ticking after dispose: %d -> %d", settled, got)
	}
}

func TestUseIntervalSingleTickerAcrossRenders(t *testing.T) {
	sc := reactive.NewScope(nil)
	defer sc.Dispose()

	var ticks atomic.Int64
	render := func() {
		sc.BeginRender()
		UseInterval(sc, 10*time.Millisecond, func() {
			ticks.Add(1)
		})
	}

	render()
	render()
	render()

	// One ticker, not three: after ~35ms we expect roughly 3 ticks, far
	// fewer than a tripled ticker would produce.
	time.Sleep(35 * time.Millisecond)
	if got := ticks.Load(); got > 6 {
		t.Errorf("expected a single ticker, got %d ticks", got)
	}
}

func TestUseTimeoutFires(t *testing.T) {
	sc := reactive.NewScope(nil)
	defer sc.Dispose()

	fired := make(chan struct{})
	sc.BeginRender()
	UseTimeout(sc, 5*time.Millisecond, func() {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout never fired")
	}
}

func TestUseTimeoutCancelledByDispose(t *testing.T) {
	sc := reactive.NewScope(nil)

	var fired atomic.Bool
	sc.BeginRender()
	UseTimeout(sc, 20*time.Millisecond, func() {
		fired.Store(true)
	})

	sc.Dispose()
	time.Sleep(40 * time.Millisecond)

	if fired.Load() {
		t.Error("disposed scope should cancel the timeout")
	}
}

func TestUseDebounceCoalesces(t *testing.T) {
	sc := reactive.NewScope(nil)
	defer sc.Dispose()

	sc.BeginRender()
	db := UseDebounce(sc, 20*time.Millisecond)

	var calls atomic.Int64
	for i := 0; i < 5; i++ {
		db.Trigger(func() { calls.Add(1) })
		time.Sleep(2 * time.Millisecond)
	}

	waitFor(t, "the debounced call", func() bool {
		return calls.Load() == 1
	})

	// No further calls accumulate.
	time.Sleep(40 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 call, got %d", got)
	}
}

func TestDebounceCancel(t *testing.T) {
	sc := reactive.NewScope(nil)
	defer sc.Dispose()

	sc.BeginRender()
	db := UseDebounce(sc, 10*time.Millisecond)

	var calls atomic.Int64
	db.Trigger(func() { calls.Add(1) })
	db.Cancel()

	time.Sleep(30 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("cancelled trigger should not fire, got %d", got)
	}
}

func TestDebounceStableAcrossRenders(t *testing.T) {
	sc := reactive.NewScope(nil)
	defer sc.Dispose()

	render := func() *Debouncer {
		sc.BeginRender()
		return UseDebounce(sc, time.Millisecond)
	}

	if render() != render() {
		t.Error("expected the same debouncer across renders")
	}
}

func TestDebounceRejectsAfterDispose(t *testing.T) {
	sc := reactive.NewScope(nil)
	sc.BeginRender()
	db := UseDebounce(sc, time.Millisecond)
	sc.Dispose()

	var calls atomic.Int64
	db.Trigger(func() { calls.Add(1) })

	time.Sleep(20 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("trigger after dispose should not fire, got %d", got)
	}
}
