package storage

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vango-sdk/pkg/watch"
)

// Default tracer name for storage spans.
const defaultTracerName = "vango-storage"

// TraceConfig configures the tracing wrapper.
type TraceConfig struct {
	// TracerName is the name of the tracer (default: "vango-storage").
	TracerName string

	// IncludeKeys records the storage key on each span. Keys may contain
	// user-visible data, so this is disabled by default.
	IncludeKeys bool

	tracer trace.Tracer
}

// TraceOption configures the tracing wrapper.
type TraceOption func(*TraceConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TraceOption {
	return func(c *TraceConfig) {
		c.TracerName = name
	}
}

// WithTracedKeys records the storage key as a span attribute.
func WithTracedKeys(include bool) TraceOption {
	return func(c *TraceConfig) {
		c.IncludeKeys = include
	}
}

// tracedBacking wraps a Backing so every load, store, and remove becomes a
// span on the global tracer provider. The Subscriber, Lister, and
// notification surfaces of the wrapped backing pass through untouched.
type tracedBacking struct {
	inner  Backing
	config TraceConfig
}

// Traced wraps b with OpenTelemetry spans.
//
// Spans created:
//   - storage.load: one per read, with the backing name and hit/miss
//   - storage.store: one per write
//   - storage.remove: one per delete
//
// The tracer uses the global OpenTelemetry tracer provider; configure it in
// main() with otel.SetTracerProvider before any storage traffic.
func Traced(b Backing, opts ...TraceOption) Backing {
	config := TraceConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)

	return &tracedBacking{inner: b, config: config}
}

func (t *tracedBacking) span(name, key string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("storage.backing", backingName(t.inner)),
	}
	if t.config.IncludeKeys {
		attrs = append(attrs, attribute.String("storage.key", key))
	}
	return t.config.tracer.Start(context.Background(), name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Name reports the wrapped backing's label, so metrics and logs stay
// attributed to the real medium.
func (t *tracedBacking) Name() string { return backingName(t.inner) }

func (t *tracedBacking) Encoder() Encoder { return t.inner.Encoder() }

func (t *tracedBacking) Load(key string) (Encoded, bool, error) {
	_, span := t.span("storage.load", key)
	e, ok, err := t.inner.Load(key)
	span.SetAttributes(attribute.Bool("storage.hit", ok))
	finish(span, err)
	return e, ok, err
}

func (t *tracedBacking) Store(key string, e Encoded) error {
	_, span := t.span("storage.store", key)
	err := t.inner.Store(key, e)
	finish(span, err)
	return err
}

func (t *tracedBacking) Remove(key string) error {
	_, span := t.span("storage.remove", key)
	err := t.inner.Remove(key)
	finish(span, err)
	return err
}

// Keys passes through when the wrapped backing enumerates keys.
func (t *tracedBacking) Keys() ([]string, error) {
	if l, ok := t.inner.(Lister); ok {
		return l.Keys()
	}
	return nil, nil
}

// Subscribe passes through to the wrapped backing's subscriber.
// Panics when the wrapped backing does not support subscriptions, matching
// the unwrapped behavior of NewSyncedEntry.
func (t *tracedBacking) Subscribe(key string, getter Getter) *watch.Receiver[Payload] {
	sub, ok := t.inner.(Subscriber)
	if !ok {
		panic("storage: traced backing does not support subscriptions")
	}
	return sub.Subscribe(key, getter)
}

// Unsubscribe passes through to the wrapped backing's subscriber.
func (t *tracedBacking) Unsubscribe(key string) {
	if sub, ok := t.inner.(Subscriber); ok {
		sub.Unsubscribe(key)
	}
}

// notify passes through so traced backings still broadcast writes.
func (t *tracedBacking) notify(key string) {
	if n, ok := t.inner.(notifier); ok {
		n.notify(key)
	}
}
