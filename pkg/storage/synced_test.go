package storage

import (
	"sync/atomic"
	"testing"
	"time"
)

// countingBacking wraps MemoryStorage and counts writes.
type countingBacking struct {
	*MemoryStorage
	stores atomic.Int64
}

func (c *countingBacking) Store(key string, e Encoded) error {
	c.stores.Add(1)
	return c.MemoryStorage.Store(key, e)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewSyncedEntryRequiresSubscriber(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for a backing without subscriptions")
		}
	}()
	NewSyncedEntry[int](plainBacking{}, "k", func() int { return 0 })
}

// plainBacking implements Backing but not Subscriber.
type plainBacking struct{}

func (plainBacking) Load(string) (Encoded, bool, error) { return nil, false, nil }
func (plainBacking) Store(string, Encoded) error        { return nil }
func (plainBacking) Remove(string) error                { return nil }
func (plainBacking) Encoder() Encoder                   { return CellEncoder{} }

func TestSyncedEntriesObserveEachOther(t *testing.T) {
	b := NewMemoryStorage()

	a := NewSyncedEntry(b, "count", func() int { return 0 })
	a.AutoSave()
	a.StartSync()
	defer a.Close()

	other := NewSyncedEntry(b, "count", func() int { return 0 })
	other.AutoSave()
	other.StartSync()
	defer other.Close()

	a.Data().Set(5)

	waitFor(t, "peer to observe 5", func() bool {
		return other.Data().Peek() == 5
	})
}

func TestSyncedEchoSuppression(t *testing.T) {
	b := &countingBacking{MemoryStorage: NewMemoryStorage()}

	a := NewSyncedEntry[int](b, "count", func() int { return 0 })
	a.AutoSave()
	a.StartSync()
	defer a.Close()

	other := NewSyncedEntry[int](b, "count", func() int { return 0 })
	other.AutoSave()
	other.StartSync()
	defer other.Close()

	base := b.stores.Load()

	a.Data().Set(5)
	waitFor(t, "peer to observe 5", func() bool {
		return other.Data().Peek() == 5
	})

	// Give any echo write a chance to happen before asserting.
	time.Sleep(20 * time.Millisecond)

	if got := b.stores.Load() - base; got != 1 {
		t.Errorf("expected exactly 1 backing write for the change, got %d", got)
	}
}

func TestSyncedSaveSkipsBroadcastValue(t *testing.T) {
	b := &countingBacking{MemoryStorage: NewMemoryStorage()}

	a := NewSyncedEntry[int](b, "count", func() int { return 0 })
	a.AutoSave()
	a.StartSync()
	defer a.Close()

	other := NewSyncedEntry[int](b, "count", func() int { return 0 })
	other.StartSync()
	defer other.Close()

	a.Data().Set(5)
	waitFor(t, "peer to observe 5", func() bool {
		return other.Data().Peek() == 5
	})

	base := b.stores.Load()

	// The peer's value equals the last broadcast; saving it again would only
	// re-broadcast, so it is skipped.
	other.Save()
	if got := b.stores.Load(); got != base {
		t.Errorf("expected Save to skip the broadcast value, %d extra writes", got-base)
	}

	// A genuinely different value still saves.
	other.Data().Set(6)
	other.Save()
	waitFor(t, "save of changed value", func() bool {
		return b.stores.Load() > base
	})
}

func TestSyncedCloseStopsApplying(t *testing.T) {
	b := NewMemoryStorage()

	a := NewSyncedEntry(b, "count", func() int { return 0 })
	a.AutoSave()
	a.StartSync()

	other := NewSyncedEntry(b, "count", func() int { return 0 })
	other.StartSync()

	other.Close()

	a.Data().Set(5)
	time.Sleep(20 * time.Millisecond)

	if got := other.Data().Peek(); got != 0 {
		t.Errorf("closed entry should not apply broadcasts, got %d", got)
	}
	a.Close()
}

func TestSyncedReceiverSeesTypedPayload(t *testing.T) {
	b := NewMemoryStorage()

	e := NewSyncedEntry(b, "user", func() string { return "anon" })
	e.AutoSave()
	defer e.Close()

	rx := e.Receiver()
	if rx == nil {
		t.Fatal("expected a receiver")
	}

	e.Data().Set("alice")

	<-rx.Changed()
	v, ok := As[string](rx.Latest())
	if !ok {
		t.Fatal("expected a string payload")
	}
	if v != "alice" {
		t.Errorf("expected alice, got %q", v)
	}
}
