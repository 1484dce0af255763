package storage

import (
	"fmt"
	"log/slog"
	"time"
)

// Encoded is an opaque encoded value produced by an Encoder. Its concrete
// representation is private to the encoder; text-oriented backings deal in
// string, the in-memory cell encoder passes shared handles. A nil Encoded is
// the absent sentinel: storing it deletes the key.
type Encoded = any

// Encoder transforms values to and from their encoded form.
type Encoder interface {
	// Encode converts v to its encoded form.
	Encode(v any) (Encoded, error)

	// Decode parses e into the value pointed to by into.
	// Returns *DecodeError when e is not a valid encoding.
	Decode(e Encoded, into any) error
}

// Backing is a durable key/value medium. Keys are UTF-8 strings, opaque to
// the medium. Implementations must be safe for concurrent use.
type Backing interface {
	// Load returns the encoded value for key, reporting absence via ok.
	// A read failure is distinct from absence and returned as err.
	Load(key string) (e Encoded, ok bool, err error)

	// Store writes the encoded value for key, overwriting any previous value.
	Store(key string, e Encoded) error

	// Remove deletes the key. Removing a missing key is not an error.
	Remove(key string) error

	// Encoder returns the encoder bound to this backing.
	Encoder() Encoder
}

// Lister is implemented by backings that can enumerate their keys.
type Lister interface {
	Keys() ([]string, error)
}

// notifier is implemented by backings that deliver change notifications
// in-process, directly after a write through this package (the file and
// memory media). Web media are notified through platform storage events
// instead.
type notifier interface {
	notify(key string)
}

// namer lets a backing pick the label used in logs and metrics.
type namer interface {
	Name() string
}

// backingName returns the metrics/log label for a backing.
func backingName(b Backing) string {
	if n, ok := b.(namer); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", b)
}

// logger is the package logger. Recoverable failures (decode, I/O) are
// reported here and never surface to component code.
var logger = slog.Default()

// SetLogger replaces the package logger.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Get reads and decodes the value for key. Absence and any failure both
// report ok=false; true read errors and decode failures are logged, since
// the caller's recovery path (fall back to init) is the same.
func Get[T any](b Backing, key string) (v T, ok bool) {
	e, present, err := b.Load(key)
	if err != nil {
		logger.Error("storage read failed",
			"backing", backingName(b), "key", key, "error", err)
		return v, false
	}
	if !present {
		return v, false
	}
	if err := b.Encoder().Decode(e, &v); err != nil {
		recordDecodeFailure(backingName(b))
		logger.Error("storage decode failed",
			"backing", backingName(b), "key", key, "error", err)
		var zero T
		return zero, false
	}
	return v, true
}

// Set encodes value and writes it to the backing. Encoding to the absent
// sentinel deletes the key. In-process subscribers of the key are notified
// before Set returns.
func Set[T any](b Backing, key string, value T) error {
	start := time.Now()
	e, err := b.Encoder().Encode(value)
	if err == nil {
		if e == nil {
			err = b.Remove(key)
		} else {
			err = b.Store(key, e)
		}
	}
	recordSave(backingName(b), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("storage: set %q: %w", key, err)
	}

	if n, ok := b.(notifier); ok {
		n.notify(key)
	}
	return nil
}

// GetOrInit reads the value for key, or runs init and persists its result
// when the key is absent or undecodable.
func GetOrInit[T any](b Backing, key string, init func() T) T {
	if v, ok := Get[T](b, key); ok {
		return v
	}
	v := init()
	if err := Set(b, key, v); err != nil {
		logger.Error("storage write failed",
			"backing", backingName(b), "key", key, "error", err)
	}
	return v
}
