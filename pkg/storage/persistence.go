package storage

import (
	"fmt"
	"runtime"

	"github.com/vango-dev/vango-sdk/pkg/reactive"
)

// UseStorage is the storage hook for an explicit backing: it binds key to a
// reactive signal whose writes persist automatically. The entry is created
// on the first render of sc and reused on later renders; it is dropped with
// the scope.
func UseStorage[T any](sc *reactive.Scope, b Backing, key string, init func() T) *reactive.Signal[T] {
	entry := reactive.UseHook(sc, func() *Entry[T] {
		var e *Entry[T]
		reactive.WithScope(sc, func() {
			e = NewEntry(b, key, init)
		})
		return e
	})
	useHydrate[T](sc, entry, init)
	return entry.Data()
}

// UseSyncedStorage is UseStorage plus cross-instance synchronization: all
// entries on the same key, in this process or other windows on the same
// storage area, observe each other's writes. The backing must implement
// Subscriber.
func UseSyncedStorage[T any](sc *reactive.Scope, b Backing, key string, init func() T) *reactive.Signal[T] {
	entry := reactive.UseHook(sc, func() *SyncedEntry[T] {
		var e *SyncedEntry[T]
		reactive.WithScope(sc, func() {
			e = NewSyncedEntry(b, key, init)
			e.StartSync()
		})
		sc.OnCleanup(e.Close)
		return e
	})
	useHydrate[T](sc, entry, init)
	return entry.Data()
}

// defaultLocal is the backing used by the Persistent hooks: one file per key
// under the process-wide directory.
var defaultLocal = &LocalFiles{}

// Persistent binds key to a signal persisted in the platform-default
// backing. SetDirectory must have been called at startup.
func Persistent[T any](sc *reactive.Scope, key string, init func() T) *reactive.Signal[T] {
	return UseStorage(sc, defaultLocal, key, init)
}

// SyncedPersistent is Persistent with cross-instance synchronization.
func SyncedPersistent[T any](sc *reactive.Scope, key string, init func() T) *reactive.Signal[T] {
	return UseSyncedStorage[T](sc, defaultLocal, key, init)
}

// SingletonPersistent is Persistent with the key derived from the caller's
// source location as "<file>:<line>", so every textual occurrence gets its
// own persistent state and repeated calls from one line share it.
func SingletonPersistent[T any](sc *reactive.Scope, init func() T) *reactive.Signal[T] {
	return UseStorage(sc, defaultLocal, CallerKey(1), init)
}

// CallerKey derives a storage key from the caller's source location, skip
// frames above it (0 = the caller of CallerKey).
func CallerKey(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		panic("storage: cannot resolve caller for singleton key")
	}
	return fmt.Sprintf("%s:%d", file, line)
}
