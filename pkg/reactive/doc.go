// Package reactive provides the minimal reactive runtime the SDK binds to:
// typed signals, effects with automatic dependency tracking, and scopes that
// own the lifetime of both.
//
// A Signal is a reactive value cell. Reading it inside an effect subscribes
// the effect; writing it re-runs every subscribed effect whose value actually
// changed. A Scope owns signals, effects, and cleanup callbacks, and carries
// the per-render bookkeeping (hook slots, generation counter) that hook-style
// helpers build on.
package reactive
