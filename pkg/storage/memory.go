package storage

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/vango-dev/vango-sdk/pkg/watch"
)

// CellEncoder is the encoder for in-memory session storage: the "encoded"
// value is a shared handle to the value itself, with no serialization.
// Useful when state only needs to survive within one process.
type CellEncoder struct{}

// Encode returns the value itself as the shared handle.
func (CellEncoder) Encode(v any) (Encoded, error) {
	return v, nil
}

// Decode assigns the shared handle to the value pointed to by into.
// A type mismatch is reported as a decode failure.
func (CellEncoder) Decode(e Encoded, into any) error {
	if e == nil {
		return &DecodeError{Stage: "cell", Err: fmt.Errorf("nil cell")}
	}
	dst := reflect.ValueOf(into)
	if dst.Kind() != reflect.Pointer || dst.IsNil() {
		return &DecodeError{Stage: "cell", Err: fmt.Errorf("target is %T, want non-nil pointer", into)}
	}
	src := reflect.ValueOf(e)
	if !src.Type().AssignableTo(dst.Elem().Type()) {
		return &DecodeError{
			Stage: "cell",
			Err:   fmt.Errorf("cell holds %s, want %s", src.Type(), dst.Elem().Type()),
		}
	}
	dst.Elem().Set(src)
	return nil
}

// MemoryStorage is a session-scoped in-process backing: a shared map of
// untyped cells. Nothing survives process exit. Like LocalFiles it notifies
// in-process subscribers directly after each write.
type MemoryStorage struct {
	mu    sync.RWMutex
	cells map[string]any
	subs  *subscriptions
}

// NewMemoryStorage creates an empty in-process backing.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		cells: make(map[string]any),
		subs:  newSubscriptions("memory"),
	}
}

// Name implements the metrics/log label.
func (m *MemoryStorage) Name() string { return "memory" }

// Encoder returns the shared-cell encoder.
func (m *MemoryStorage) Encoder() Encoder { return CellEncoder{} }

// Load implements Backing.
func (m *MemoryStorage) Load(key string) (Encoded, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.cells[key]
	return v, ok, nil
}

// Store implements Backing.
func (m *MemoryStorage) Store(key string, e Encoded) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells[key] = e
	return nil
}

// Remove implements Backing.
func (m *MemoryStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cells, key)
	return nil
}

// Keys implements Lister.
func (m *MemoryStorage) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.cells))
	for k := range m.cells {
		keys = append(keys, k)
	}
	return keys, nil
}

// Subscribe implements Subscriber.
func (m *MemoryStorage) Subscribe(key string, getter Getter) *watch.Receiver[Payload] {
	return m.subs.subscribe(key, getter)
}

// Unsubscribe implements Subscriber.
func (m *MemoryStorage) Unsubscribe(key string) {
	m.subs.unsubscribe(key)
}

// notify broadcasts the key's current value to in-process subscribers.
func (m *MemoryStorage) notify(key string) {
	m.subs.notify(key)
}
