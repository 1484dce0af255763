package reactive

import (
	"sync"
	"sync/atomic"
)

// Scope owns reactive primitives created within it. Disposing a Scope
// disposes its effects, runs registered cleanups, and disposes child scopes.
// Scopes form a hierarchy mirroring the component tree.
//
// A Scope also carries the per-render bookkeeping that hook-style helpers
// need: stable hook slots and a generation counter incremented on each
// render pass.
type Scope struct {
	id uint64

	// parent is the parent scope, nil for a root scope.
	parent *Scope

	// children are child scopes.
	children   []*Scope
	childrenMu sync.Mutex

	// effects owned by this scope.
	effects   []*Effect
	effectsMu sync.Mutex

	// cleanups are functions registered via OnCleanup.
	cleanups   []func()
	cleanupsMu sync.Mutex

	// hookSlots hold per-call-site state with stable identity across renders.
	hookSlots   []any
	hookSlotIdx int
	slotsMu     sync.Mutex

	// generation counts completed render passes, starting at 0.
	generation int
	rendered   bool
	genMu      sync.Mutex

	// hydrating marks the scope as re-activating server-rendered output.
	hydrating bool

	// scheduler is invoked by RequestUpdate to ask the host for a re-render.
	scheduler func()

	disposed atomic.Bool
}

// ScopeOption configures a Scope.
type ScopeOption func(*Scope)

// WithHydration marks the scope as hydrating server-rendered output.
func WithHydration() ScopeOption {
	return func(s *Scope) {
		s.hydrating = true
	}
}

// WithScheduler sets the callback invoked when the scope requests an update.
// The host typically schedules a re-render of the owning component.
func WithScheduler(fn func()) ScopeOption {
	return func(s *Scope) {
		s.scheduler = fn
	}
}

// NewScope creates a new Scope with the given parent.
// The scope is registered as a child of the parent; pass nil for a root scope.
func NewScope(parent *Scope, opts ...ScopeOption) *Scope {
	s := &Scope{
		id:     nextID(),
		parent: parent,
	}
	for _, opt := range opts {
		opt(s)
	}
	if parent != nil {
		parent.addChild(s)
	}
	return s
}

// ID returns the unique identifier for this scope.
func (s *Scope) ID() uint64 {
	return s.id
}

// Parent returns the parent scope, or nil for a root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// IsDisposed reports whether this scope has been disposed.
func (s *Scope) IsDisposed() bool {
	return s.disposed.Load()
}

// Hydrating reports whether the scope is hydrating server-rendered output.
func (s *Scope) Hydrating() bool {
	return s.hydrating
}

// Generation returns the current render generation, starting at 0.
func (s *Scope) Generation() int {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generation
}

// BeginRender resets the hook slot cursor and advances the generation
// counter. The host calls this at the start of every render pass; the first
// pass is generation 0.
func (s *Scope) BeginRender() {
	s.genMu.Lock()
	if s.rendered {
		s.generation++
	} else {
		s.rendered = true
	}
	s.genMu.Unlock()

	s.slotsMu.Lock()
	s.hookSlotIdx = 0
	s.slotsMu.Unlock()
}

// RequestUpdate asks the host to schedule another render pass.
// No-op when no scheduler is configured.
func (s *Scope) RequestUpdate() {
	if s.scheduler != nil {
		s.scheduler()
	}
}

// Go spawns a long-running task associated with this scope.
// The task is expected to exit on its own when the resources it blocks on
// (receivers, tickers) are closed by scope cleanup.
func (s *Scope) Go(fn func()) {
	if s.disposed.Load() {
		return
	}
	go fn()
}

// nextSlot returns the hook slot for the current call site, creating it with
// create on the first render. Slot identity is positional: hooks must be
// called in the same order on every render.
func (s *Scope) nextSlot(create func() any) any {
	s.slotsMu.Lock()
	defer s.slotsMu.Unlock()

	idx := s.hookSlotIdx
	s.hookSlotIdx++

	if idx < len(s.hookSlots) {
		return s.hookSlots[idx]
	}
	v := create()
	s.hookSlots = append(s.hookSlots, v)
	return v
}

// UseHook returns the per-call-site value for the current hook position in
// sc, creating it with create on the first render. This is what gives hooks
// like UseStorage a stable entry across render passes.
func UseHook[T any](sc *Scope, create func() T) T {
	v := sc.nextSlot(func() any { return create() })
	return v.(T)
}

// addChild registers a child scope.
func (s *Scope) addChild(child *Scope) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()
	s.children = append(s.children, child)
}

// registerEffect adds an effect to this scope.
// The effect is disposed when the scope is disposed.
func (s *Scope) registerEffect(e *Effect) {
	if s.disposed.Load() {
		return
	}
	s.effectsMu.Lock()
	defer s.effectsMu.Unlock()
	s.effects = append(s.effects, e)
}

// OnCleanup registers a cleanup function to run when this scope is disposed.
// If the scope is already disposed the function runs immediately.
func (s *Scope) OnCleanup(fn func()) {
	if s.disposed.Load() {
		fn()
		return
	}
	s.cleanupsMu.Lock()
	defer s.cleanupsMu.Unlock()
	s.cleanups = append(s.cleanups, fn)
}

// Dispose tears down the scope: child scopes first, then effects, then
// cleanup callbacks in registration order. Safe to call more than once.
func (s *Scope) Dispose() {
	if s.disposed.Swap(true) {
		return
	}

	s.childrenMu.Lock()
	children := append([]*Scope(nil), s.children...)
	s.children = nil
	s.childrenMu.Unlock()
	for _, child := range children {
		child.Dispose()
	}

	s.effectsMu.Lock()
	effects := append([]*Effect(nil), s.effects...)
	s.effects = nil
	s.effectsMu.Unlock()
	for _, e := range effects {
		e.dispose()
	}

	s.cleanupsMu.Lock()
	cleanups := append(([]func())(nil), s.cleanups...)
	s.cleanups = nil
	s.cleanupsMu.Unlock()
	for _, fn := range cleanups {
		fn()
	}

	if s.parent != nil {
		s.parent.removeChild(s)
	}
}

// removeChild removes a child scope.
func (s *Scope) removeChild(child *Scope) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}
