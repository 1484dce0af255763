package storage

import (
	"fmt"
	"regexp"
	"runtime"
	"testing"

	"github.com/vango-dev/vango-sdk/pkg/reactive"
)

func TestUseStoragePersistsWrites(t *testing.T) {
	b := &LocalFiles{Dir: t.TempDir()}

	sc := reactive.NewScope(nil)
	sc.BeginRender()
	sig := UseStorage(sc, b, "count", func() int { return 0 })

	sig.Set(4)
	if v, _ := Get[int](b, "count"); v != 4 {
		t.Errorf("expected 4 persisted, got %d", v)
	}
}

func TestUseStorageStableAcrossRenders(t *testing.T) {
	b := &LocalFiles{Dir: t.TempDir()}
	sc := reactive.NewScope(nil)

	render := func() *reactive.Signal[int] {
		sc.BeginRender()
		return UseStorage(sc, b, "count", func() int { return 0 })
	}

	first := render()
	first.Set(3)
	second := render()

	if first != second {
		t.Error("expected the same signal across renders")
	}
	if got := second.Peek(); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
}

func TestUseStorageHydration(t *testing.T) {
	b := &LocalFiles{Dir: t.TempDir()}
	if err := Set(b, "count", 5); err != nil {
		t.Fatal(err)
	}

	updates := 0
	sc := reactive.NewScope(nil,
		reactive.WithHydration(),
		reactive.WithScheduler(func() { updates++ }),
	)

	// Generation 0 must render the init value so the client output matches
	// the server's, and it must schedule a follow-up render.
	sc.BeginRender()
	sig := UseStorage(sc, b, "count", func() int { return 0 })
	if got := sig.Peek(); got != 0 {
		t.Errorf("generation 0 should show the init value, got %d", got)
	}
	if updates != 1 {
		t.Errorf("generation 0 should request a re-render, got %d requests", updates)
	}

	// The persisted value must not have been clobbered by the init render.
	if v, _ := Get[int](b, "count"); v != 5 {
		t.Errorf("hydration must not overwrite the persisted value, got %d", v)
	}

	// Generation 1 restores the persisted value and arms auto-save.
	sc.BeginRender()
	sig = UseStorage(sc, b, "count", func() int { return 0 })
	if got := sig.Peek(); got != 5 {
		t.Errorf("generation 1 should restore the persisted value, got %d", got)
	}

	sig.Set(6)
	if v, _ := Get[int](b, "count"); v != 6 {
		t.Errorf("auto-save should be armed after hydration, got %d", v)
	}
}

func TestUseStorageWithoutHydrationArmsImmediately(t *testing.T) {
	b := &LocalFiles{Dir: t.TempDir()}
	if err := Set(b, "count", 5); err != nil {
		t.Fatal(err)
	}

	sc := reactive.NewScope(nil)
	sc.BeginRender()
	sig := UseStorage(sc, b, "count", func() int { return 0 })

	if got := sig.Peek(); got != 5 {
		t.Errorf("expected the persisted value immediately, got %d", got)
	}
}

func TestUseSyncedStorageAppliesPeerWrites(t *testing.T) {
	b := NewMemoryStorage()

	scA := reactive.NewScope(nil)
	scA.BeginRender()
	a := UseSyncedStorage(scA, Backing(b), "count", func() int { return 0 })
	defer scA.Dispose()

	scB := reactive.NewScope(nil)
	scB.BeginRender()
	peer := UseSyncedStorage(scB, Backing(b), "count", func() int { return 0 })
	defer scB.Dispose()

	a.Set(8)
	waitFor(t, "peer signal to observe 8", func() bool {
		return peer.Peek() == 8
	})
}

func TestScopeDisposeClosesSyncedEntry(t *testing.T) {
	b := NewMemoryStorage()

	sc := reactive.NewScope(nil)
	sc.BeginRender()
	sig := UseSyncedStorage(sc, Backing(b), "count", func() int { return 0 })
	sc.Dispose()

	// Writes elsewhere no longer reach the disposed entry.
	writer := NewEntry(b, "count", func() int { return 0 })
	writer.Data().Set(9)
	writer.AutoSave()
	writer.Save()

	if got := sig.Peek(); got != 0 {
		t.Errorf("disposed synced entry should stop applying, got %d", got)
	}
}

func TestCallerKeyFormat(t *testing.T) {
	_, file, line, _ := runtime.Caller(0)
	key := CallerKey(0)

	want := fmt.Sprintf("%s:%d", file, line+1)
	if key != want {
		t.Errorf("expected %q, got %q", want, key)
	}

	if ok, _ := regexp.MatchString(`.+\.go:\d+$`, key); !ok {
		t.Errorf("expected <file>:<line>, got %q", key)
	}
}

func TestCallerKeyDistinctPerLine(t *testing.T) {
	a := CallerKey(0)
	b := CallerKey(0)
	if a == b {
		t.Error("different lines should produce different keys")
	}
}
