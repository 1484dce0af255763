package storage

import (
	"fmt"

	"github.com/vango-dev/vango-sdk/pkg/reactive"
	"github.com/vango-dev/vango-sdk/pkg/watch"
)

// SyncedEntry is an Entry whose signal is also updated by external writes to
// the same key: it holds a receiver from the backing's Subscriber and
// applies inbound broadcasts to the signal. Because an applied broadcast is
// recorded as the last persisted value, the auto-save effect does not echo
// it back to the backing.
type SyncedEntry[T any] struct {
	*Entry[T]

	sub Subscriber
	rx  *watch.Receiver[Payload]
}

// NewSyncedEntry creates a synced entry for key. The backing must also
// implement Subscriber; anything else is a wiring error and panics.
func NewSyncedEntry[T any](b Backing, key string, init func() T) *SyncedEntry[T] {
	sub, ok := b.(Subscriber)
	if !ok {
		panic(fmt.Sprintf("storage: backing %T does not support subscriptions", b))
	}

	entry := NewEntry(b, key, init)
	getter := func() (Payload, error) {
		v, ok := Get[T](b, key)
		if !ok {
			return Payload{}, fmt.Errorf("no decodable value for key %q", key)
		}
		return NewPayload(v), nil
	}

	return &SyncedEntry[T]{
		Entry: entry,
		sub:   sub,
		rx:    sub.Subscribe(key, getter),
	}
}

// Receiver returns the broadcast receiver for the entry's key.
func (e *SyncedEntry[T]) Receiver() *watch.Receiver[Payload] {
	return e.rx
}

// Save persists the current signal value unless it equals the last broadcast
// payload, in which case the backing already holds it and persisting would
// only re-broadcast.
func (e *SyncedEntry[T]) Save() {
	if last, ok := As[T](e.rx.Peek()); ok {
		if reactive.Equal(e.data.Peek(), last) {
			return
		}
	}
	e.Entry.Save()
}

// AutoSave arms the auto-persist effect with the additional last-broadcast
// comparison from Save. Idempotent.
func (e *SyncedEntry[T]) AutoSave() {
	e.autoSaveOnce.Do(func() {
		reactive.CreateEffect(func() reactive.Cleanup {
			v := e.data.Get()
			e.saveMu.Lock()
			defer e.saveMu.Unlock()
			if e.lastSaved != nil && reactive.Equal(*e.lastSaved, v) {
				return nil
			}
			if last, ok := As[T](e.rx.Peek()); ok && reactive.Equal(v, last) {
				ls := v
				e.lastSaved = &ls
				return nil
			}
			e.persist(v)
			return nil
		})
	})
}

// StartSync spawns the inbound-apply loop: each broadcast on the key is
// written into the signal. The loop exits when the receiver is closed.
func (e *SyncedEntry[T]) StartSync() {
	go e.applyLoop()
}

// applyLoop awaits broadcasts and applies them to the signal.
func (e *SyncedEntry[T]) applyLoop() {
	for {
		<-e.rx.Changed()
		if e.rx.Closed() {
			return
		}
		payload := e.rx.Latest()
		if payload.Data() == nil {
			// Default sentinel, nothing broadcast yet.
			continue
		}
		v, ok := As[T](payload)
		if !ok {
			panic(fmt.Sprintf("storage: payload type mismatch for key %q: got %T",
				e.key, payload.Data()))
		}

		// Record before writing the signal so the auto-save effect, which
		// runs synchronously on Set, sees the value as already persisted.
		e.saveMu.Lock()
		ls := v
		e.lastSaved = &ls
		e.saveMu.Unlock()

		e.data.Set(v)
	}
}

// Close drops the receiver and garbage-collects the subscription when this
// was the last receiver for the key. Safe to call more than once.
func (e *SyncedEntry[T]) Close() {
	e.rx.Close()
	e.sub.Unsubscribe(e.key)
}
