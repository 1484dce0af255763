package storage

import (
	"sync"

	"github.com/vango-dev/vango-sdk/pkg/reactive"
)

// Entry binds one key in a backing to one reactive signal holding the
// decoded value. Construction reads the backing (persisting the init value
// when the key is absent); AutoSave arms an effect that persists every
// change made through the signal.
type Entry[T any] struct {
	key     string
	backing Backing
	data    *reactive.Signal[T]

	// saveMu serializes persists for this entry and guards lastSaved.
	// Never held across anything that can suspend.
	saveMu    sync.Mutex
	lastSaved *T

	autoSaveOnce sync.Once
}

// NewEntry creates an entry for key, reading the current value from the
// backing or persisting init() when the key is absent or undecodable.
func NewEntry[T any](b Backing, key string, init func() T) *Entry[T] {
	v := GetOrInit(b, key, init)
	e := &Entry[T]{
		key:     key,
		backing: b,
		data:    reactive.NewSignal(v),
	}
	// The backing already holds v, so the first auto-save pass has nothing
	// to do.
	e.lastSaved = &v
	return e
}

// Key returns the entry's key.
func (e *Entry[T]) Key() string {
	return e.key
}

// Data returns the reactive signal carrying the decoded value.
func (e *Entry[T]) Data() *reactive.Signal[T] {
	return e.data
}

// Backing returns the medium this entry persists to.
func (e *Entry[T]) Backing() Backing {
	return e.backing
}

// Save encodes the current signal value and writes it to the backing.
// Write failures are logged; the in-memory value stays authoritative until
// the next successful write.
func (e *Entry[T]) Save() {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	e.persist(e.data.Peek())
}

// persist writes v to the backing and records it as last saved.
// Callers hold saveMu.
func (e *Entry[T]) persist(v T) {
	if err := Set(e.backing, e.key, v); err != nil {
		logger.Error("storage write failed",
			"backing", backingName(e.backing), "key", e.key, "error", err)
		return
	}
	e.lastSaved = &v
}

// Update replaces the signal value with the backing's current value, if the
// key is present and decodable. On failure the current value is kept.
func (e *Entry[T]) Update() {
	if v, ok := Get[T](e.backing, e.key); ok {
		e.saveMu.Lock()
		ls := v
		e.lastSaved = &ls
		e.saveMu.Unlock()
		e.data.Set(v)
	}
}

// AutoSave arms the auto-persist effect: every signal write that changes the
// value by structural equality is flushed to the backing. Writes that match
// the last persisted value are skipped, which is what breaks save/notify
// feedback loops. Idempotent.
func (e *Entry[T]) AutoSave() {
	e.autoSaveOnce.Do(func() {
		reactive.CreateEffect(func() reactive.Cleanup {
			v := e.data.Get()
			e.saveMu.Lock()
			defer e.saveMu.Unlock()
			if e.lastSaved != nil && reactive.Equal(*e.lastSaved, v) {
				return nil
			}
			e.persist(v)
			return nil
		})
	})
}
