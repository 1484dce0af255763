package storage

import (
	"sync"

	"github.com/vango-dev/vango-sdk/pkg/watch"
)

// Payload is a type-erased carrier used to deliver typed values over an
// untyped broadcast channel. The getter captured at subscribe time decides
// the concrete type; receivers downcast with As. A mismatched downcast on a
// live payload is a wiring error, not a runtime condition.
type Payload struct {
	data any
}

// NewPayload wraps v in a Payload.
func NewPayload(v any) Payload {
	return Payload{data: v}
}

// Data returns the carried value, nil for the default sentinel payload a
// receiver sees before the first broadcast.
func (p Payload) Data() any {
	return p.data
}

// As downcasts the payload to T.
func As[T any](p Payload) (T, bool) {
	v, ok := p.data.(T)
	return v, ok
}

// Getter reads the current value for a key from its backing and wraps it in
// a typed Payload. Captured at subscribe time; this is what lets the same
// key carry typed broadcasts even though events deliver only a key name.
type Getter func() (Payload, error)

// Subscriber is a change-notification medium for a backing: one broadcast
// channel per key delivering the latest value whenever any party writes it.
type Subscriber interface {
	// Subscribe registers interest in key. The first subscriber for a key
	// installs the getter; later subscribers share the same channel.
	Subscribe(key string, getter Getter) *watch.Receiver[Payload]

	// Unsubscribe removes the key's record once its last receiver has been
	// closed. Calling it while receivers are live is a no-op.
	Unsubscribe(key string)
}

// subscription is one key's broadcast record.
type subscription struct {
	sender *watch.Sender[Payload]
	getter Getter
}

// subscriptions is the per-medium registry mapping keys to broadcast
// records. Lookups for routing take the read lock; inserts and removals the
// write lock. No lock is held across getter or send calls.
type subscriptions struct {
	name string

	mu sync.RWMutex
	m  map[string]*subscription
}

func newSubscriptions(name string) *subscriptions {
	return &subscriptions{name: name, m: make(map[string]*subscription)}
}

// subscribe returns a receiver for key, creating the broadcast record on
// first use. A record left behind by closed receivers is revived rather than
// recreated, so its cached last value survives.
func (s *subscriptions) subscribe(key string, getter Getter) *watch.Receiver[Payload] {
	// Attach while still holding the lock: the sweep in notify deletes under
	// the write lock, so a record seen here cannot be removed before the
	// receiver count reflects the new subscription.
	s.mu.RLock()
	if sub, ok := s.m[key]; ok {
		rx := sub.sender.Subscribe()
		s.mu.RUnlock()
		return rx
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.m[key]; ok {
		return sub.sender.Subscribe()
	}
	sub := &subscription{
		sender: watch.New(Payload{}),
		getter: getter,
	}
	s.m[key] = sub
	return sub.sender.Subscribe()
}

// unsubscribe removes the record for key if no receivers remain.
func (s *subscriptions) unsubscribe(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.m[key]; ok && sub.sender.Receivers() == 0 {
		delete(s.m, key)
	}
}

// notify reads the current value through the key's getter and broadcasts it.
// A write with no subscription is silently not broadcast; a record whose
// receivers are all closed is swept instead.
func (s *subscriptions) notify(key string) {
	s.mu.RLock()
	sub, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return
	}

	if sub.sender.Receivers() == 0 {
		s.mu.Lock()
		if cur, ok := s.m[key]; ok && cur == sub && cur.sender.Receivers() == 0 {
			delete(s.m, key)
		}
		s.mu.Unlock()
		return
	}

	payload, err := sub.getter()
	if err != nil {
		logger.Error("storage broadcast read failed",
			"medium", s.name, "key", key, "error", err)
		return
	}
	sub.sender.Send(payload)
	recordBroadcast(s.name)
}
