package storage

import (
	"sync"

	"github.com/vango-dev/vango-sdk/pkg/watch"
)

// SlotStore is the platform surface behind a WebStorage backing: named
// string slots plus storage events. Browser windows implement it over the
// client bridge (see the webbridge package); MemorySlots implements it
// in-process.
type SlotStore interface {
	// GetItem returns the slot value, reporting absence via ok.
	GetItem(key string) (value string, ok bool, err error)

	// SetItem overwrites the slot.
	SetItem(key, value string) error

	// RemoveItem clears the slot. Removing a missing slot is not an error.
	RemoveItem(key string) error

	// Events registers fn to receive the key of every slot write, from this
	// party or any other sharing the underlying storage area.
	Events(fn func(key string)) error
}

// WebStorage is a backing over browser local or session storage slots.
// One slot per key, named by the key string, holding the encoded value.
//
// It is also a Subscriber: storage events from the platform are delivered to
// a single listener installed lazily on the first subscription and never
// uninstalled. Each event routes through the key's registered getter, which
// re-reads and decodes the current value.
type WebStorage struct {
	slots SlotStore
	enc   Encoder
	name  string

	subs       *subscriptions
	listenOnce sync.Once
}

// WebOption configures a WebStorage.
type WebOption func(*WebStorage)

// WithWebEncoder overrides the default encoder.
func WithWebEncoder(enc Encoder) WebOption {
	return func(w *WebStorage) {
		w.enc = enc
	}
}

// WithWebName sets the label used in logs and metrics.
// Defaults to "web"; use "local" or "session" to tell the two areas apart.
func WithWebName(name string) WebOption {
	return func(w *WebStorage) {
		w.name = name
	}
}

// NewWebStorage creates a backing over the given slot store.
func NewWebStorage(slots SlotStore, opts ...WebOption) *WebStorage {
	w := &WebStorage{
		slots: slots,
		enc:   Default,
		name:  "web",
	}
	for _, opt := range opts {
		opt(w)
	}
	w.subs = newSubscriptions(w.name)
	return w
}

// Name implements the metrics/log label.
func (w *WebStorage) Name() string { return w.name }

// Encoder returns the encoder bound to this backing.
func (w *WebStorage) Encoder() Encoder { return w.enc }

// Load reads the slot for key.
func (w *WebStorage) Load(key string) (Encoded, bool, error) {
	v, ok, err := w.slots.GetItem(key)
	if err != nil || !ok {
		return nil, false, err
	}
	return v, true, nil
}

// Store writes the slot for key.
func (w *WebStorage) Store(key string, e Encoded) error {
	s, err := encodedString(e)
	if err != nil {
		return err
	}
	return w.slots.SetItem(key, s)
}

// Remove clears the slot for key.
func (w *WebStorage) Remove(key string) error {
	return w.slots.RemoveItem(key)
}

// Keys lists the slots when the underlying store supports enumeration.
func (w *WebStorage) Keys() ([]string, error) {
	if l, ok := w.slots.(Lister); ok {
		return l.Keys()
	}
	return nil, nil
}

// Subscribe implements Subscriber, installing the storage event listener on
// first use.
func (w *WebStorage) Subscribe(key string, getter Getter) *watch.Receiver[Payload] {
	w.listenOnce.Do(func() {
		if err := w.slots.Events(w.subs.notify); err != nil {
			logger.Error("storage event listener install failed",
				"backing", w.name, "error", err)
		}
	})
	return w.subs.subscribe(key, getter)
}

// Unsubscribe implements Subscriber.
func (w *WebStorage) Unsubscribe(key string) {
	w.subs.unsubscribe(key)
}

// MemorySlots is an in-process SlotStore: a shared string map with
// synchronous event fan-out. Two WebStorage backings over the same
// MemorySlots behave like two windows on the same browser storage area.
type MemorySlots struct {
	mu        sync.RWMutex
	slots     map[string]string
	listeners []func(key string)
}

// NewMemorySlots creates an empty in-process slot store.
func NewMemorySlots() *MemorySlots {
	return &MemorySlots{slots: make(map[string]string)}
}

// GetItem implements SlotStore.
func (m *MemorySlots) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.slots[key]
	return v, ok, nil
}

// SetItem implements SlotStore, firing events synchronously.
func (m *MemorySlots) SetItem(key, value string) error {
	m.mu.Lock()
	m.slots[key] = value
	listeners := append(([]func(string))(nil), m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(key)
	}
	return nil
}

// RemoveItem implements SlotStore.
func (m *MemorySlots) RemoveItem(key string) error {
	m.mu.Lock()
	_, ok := m.slots[key]
	delete(m.slots, key)
	listeners := append(([]func(string))(nil), m.listeners...)
	m.mu.Unlock()

	if ok {
		for _, fn := range listeners {
			fn(key)
		}
	}
	return nil
}

// Events implements SlotStore.
func (m *MemorySlots) Events(fn func(key string)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
	return nil
}

// Keys implements Lister.
func (m *MemorySlots) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.slots))
	for k := range m.slots {
		keys = append(keys, k)
	}
	return keys, nil
}
