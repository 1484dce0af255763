package reactive

import (
	"sync"
	"sync/atomic"
)

// Effect is a reactive side effect that re-runs when its dependencies change.
// Effects run immediately when created and again whenever any signal they read
// during execution changes. They may return a Cleanup that runs before the
// next execution and on disposal.
//
// Dependency changes re-run the effect synchronously on the writer's
// goroutine, so by the time Signal.Set returns every dependent effect has
// observed the new value. Batch defers the re-runs to the end of the batch.
type Effect struct {
	id uint64

	// fn is the effect body.
	fn func() Cleanup

	// cleanup is the cleanup function from the last run.
	cleanup Cleanup

	// sources are the signals this effect depends on.
	sources   []*signalBase
	sourcesMu sync.Mutex

	// scope is the Scope that owns this effect.
	scope *Scope

	// running guards against re-entrant runs of the same effect.
	running atomic.Bool

	// disposed indicates the effect has been disposed.
	disposed atomic.Bool
}

// MarkDirty re-runs the effect. Implements the Listener interface.
func (e *Effect) MarkDirty() {
	if e.disposed.Load() {
		return
	}
	e.run()
}

// ID returns the unique identifier for this effect.
// Implements the Listener interface.
func (e *Effect) ID() uint64 {
	return e.id
}

// run executes the effect body, re-tracking its dependencies.
func (e *Effect) run() {
	if e.disposed.Load() {
		return
	}

	// A write performed inside the effect body must not recurse into the
	// same effect.
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	defer e.running.Store(false)

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	// Unsubscribe from old sources; the body re-subscribes what it reads.
	e.sourcesMu.Lock()
	for _, source := range e.sources {
		source.unsubscribe(e)
	}
	e.sources = e.sources[:0]
	e.sourcesMu.Unlock()

	oldListener := setCurrentListener(e)
	e.cleanup = e.fn()
	setCurrentListener(oldListener)
}

// addSource records a source dependency.
// Called by signals when they are read during effect execution.
func (e *Effect) addSource(source *signalBase) {
	e.sourcesMu.Lock()
	defer e.sourcesMu.Unlock()

	for _, s := range e.sources {
		if s == source {
			return
		}
	}
	e.sources = append(e.sources, source)
}

// dispose cleans up the effect and unsubscribes from all sources.
func (e *Effect) dispose() {
	if e.disposed.Swap(true) {
		return
	}

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	e.sourcesMu.Lock()
	for _, source := range e.sources {
		source.unsubscribe(e)
	}
	e.sources = nil
	e.sourcesMu.Unlock()
}

// CreateEffect creates and runs a new effect within the current scope.
// The effect body runs immediately and re-runs when any signal it reads
// changes. A returned Cleanup runs before each re-run and on disposal.
//
// Example:
//
//	reactive.CreateEffect(func() reactive.Cleanup {
//	    fmt.Println("count is", count.Get())
//	    return nil
//	})
func CreateEffect(fn func() Cleanup) *Effect {
	scope := getCurrentScope()

	e := &Effect{
		id:    nextID(),
		fn:    fn,
		scope: scope,
	}

	if scope != nil {
		scope.registerEffect(e)
	}

	e.run()
	return e
}

// OnCleanup registers fn to run when the current scope is disposed.
// If no scope is active, fn is never called.
func OnCleanup(fn func()) {
	if scope := getCurrentScope(); scope != nil {
		scope.OnCleanup(fn)
	}
}
