// Package storage binds typed, serializable application state to a durable
// backing store with change propagation in both directions: signal writes are
// persisted, and external writes re-enter the signal.
//
// The three extension points are Backing (a durable key/value medium),
// Encoder (value <-> encoded transform), and Subscriber (per-key change
// notification). Entry ties one key to one reactive signal and persists it
// on change; SyncedEntry additionally applies writes made by other entries
// or windows on the same key.
//
// The high-level hooks are UseStorage, UseSyncedStorage, Persistent and
// SingletonPersistent.
package storage
