package storage

import (
	"github.com/vango-dev/vango-sdk/pkg/reactive"
)

// armable is the part of an entry the hydration adapter controls.
type armable[T any] interface {
	Data() *reactive.Signal[T]
	AutoSave()
}

// hydration is the per-call-site slot holding the value captured during the
// first hydrating render.
type hydration[T any] struct {
	captured *T
}

// useHydrate reconciles a server-rendered initial value with the client-side
// persisted value without breaking DOM hydration. DOM hydration requires the
// first client render to match the server's output exactly, so generation 0
// captures the persisted value the signal was constructed with, overwrites
// the signal with init(), and schedules another render; generation 1 writes
// the captured value back and arms auto-save.
//
// Outside hydration mode auto-save is armed immediately and nothing else
// happens.
func useHydrate[T any](sc *reactive.Scope, entry armable[T], init func() T) {
	if !sc.Hydrating() {
		entry.AutoSave()
		return
	}

	slot := reactive.UseHook(sc, func() *hydration[T] { return &hydration[T]{} })
	sig := entry.Data()

	switch sc.Generation() {
	case 0:
		v := sig.Peek()
		slot.captured = &v
		sig.Set(init())
		sc.RequestUpdate()
	default:
		if slot.captured != nil {
			sig.Set(*slot.captured)
			slot.captured = nil
		}
		entry.AutoSave()
	}
}
