package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func fileContent(t *testing.T, dir, key string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, key))
	if err != nil {
		t.Fatalf("read %s: %v", key, err)
	}
	return string(data)
}

func TestNewEntryInitializesAbsentKey(t *testing.T) {
	dir := t.TempDir()
	b := &LocalFiles{Dir: dir}

	e := NewEntry(b, "count", func() int { return 5 })

	if got := e.Data().Peek(); got != 5 {
		t.Errorf("expected signal to hold 5, got %d", got)
	}
	// The init value was persisted during construction.
	if v, ok := Get[int](b, "count"); !ok || v != 5 {
		t.Errorf("expected 5 persisted, got %d (ok=%v)", v, ok)
	}
}

func TestNewEntryReadsExistingValue(t *testing.T) {
	b := &LocalFiles{Dir: t.TempDir()}
	if err := Set(b, "count", 9); err != nil {
		t.Fatal(err)
	}

	calls := 0
	e := NewEntry(b, "count", func() int { calls++; return 0 })

	if got := e.Data().Peek(); got != 9 {
		t.Errorf("expected 9, got %d", got)
	}
	if calls != 0 {
		t.Error("init should not run for an existing value")
	}
}

func TestNewEntryFallsBackOnCorruptValue(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "count"), []byte("corrupt"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := NewEntry(&LocalFiles{Dir: dir}, "count", func() int { return 42 })

	if got := e.Data().Peek(); got != 42 {
		t.Errorf("expected fallback 42, got %d", got)
	}
}

func TestAutoSavePersistsSignalWrites(t *testing.T) {
	dir := t.TempDir()
	b := &LocalFiles{Dir: dir}

	e := NewEntry(b, "count", func() int { return 0 })
	e.AutoSave()

	e.Data().Set(1)
	e.Data().Set(2)

	// The write is synchronous: the backing holds the latest value already.
	if v, ok := Get[int](b, "count"); !ok || v != 2 {
		t.Errorf("expected 2 persisted, got %d (ok=%v)", v, ok)
	}
}

func TestAutoSaveSkipsInitialValue(t *testing.T) {
	dir := t.TempDir()
	b := &LocalFiles{Dir: dir}

	e := NewEntry(b, "count", func() int { return 1 })
	before := fileContent(t, dir, "count")

	// Touch the file so a rewrite would be observable.
	if err := os.WriteFile(filepath.Join(dir, "count"), []byte(before+" marker"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Arming auto-save re-reads the signal but the value matches the last
	// persisted one, so nothing is written.
	e.AutoSave()

	if got := fileContent(t, dir, "count"); got != before+" marker" {
		t.Error("arming auto-save should not rewrite an unchanged value")
	}
}

func TestAutoSaveSkipsEqualWrite(t *testing.T) {
	dir := t.TempDir()
	b := &LocalFiles{Dir: dir}

	e := NewEntry(b, "tags", func() []string { return []string{"a"} })
	e.AutoSave()

	before := fileContent(t, dir, "tags")
	if err := os.WriteFile(filepath.Join(dir, "tags"), []byte(before+" marker"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Structurally equal write: the signal suppresses the notification, so
	// no persist happens.
	e.Data().Set([]string{"a"})

	if got := fileContent(t, dir, "tags"); got != before+" marker" {
		t.Error("structurally equal write should not persist")
	}
}

func TestAutoSaveIdempotent(t *testing.T) {
	b := &LocalFiles{Dir: t.TempDir()}

	e := NewEntry(b, "count", func() int { return 0 })
	e.AutoSave()
	e.AutoSave()
	e.AutoSave()

	e.Data().Set(3)
	if v, _ := Get[int](b, "count"); v != 3 {
		t.Errorf("expected 3, got %d", v)
	}
}

func TestSavePersistsCurrentValue(t *testing.T) {
	b := &LocalFiles{Dir: t.TempDir()}

	e := NewEntry(b, "count", func() int { return 0 })
	e.Data().Set(7) // auto-save not armed; nothing persisted yet

	if v, _ := Get[int](b, "count"); v != 0 {
		t.Fatalf("expected 0 before Save, got %d", v)
	}

	e.Save()
	if v, _ := Get[int](b, "count"); v != 7 {
		t.Errorf("expected 7 after Save, got %d", v)
	}
}

func TestUpdateReloadsFromBacking(t *testing.T) {
	b := &LocalFiles{Dir: t.TempDir()}

	e := NewEntry(b, "count", func() int { return 1 })

	// Another writer changes the backing out of band.
	if err := Set(b, "count", 99); err != nil {
		t.Fatal(err)
	}

	e.Update()
	if got := e.Data().Peek(); got != 99 {
		t.Errorf("expected 99 after Update, got %d", got)
	}
}

func TestUpdateKeepsValueOnCorruptBacking(t *testing.T) {
	dir := t.TempDir()
	b := &LocalFiles{Dir: dir}

	e := NewEntry(b, "count", func() int { return 1 })
	if err := os.WriteFile(filepath.Join(dir, "count"), []byte("corrupt"), 0o644); err != nil {
		t.Fatal(err)
	}

	e.Update()
	if got := e.Data().Peek(); got != 1 {
		t.Errorf("expected the in-memory value kept, got %d", got)
	}
}

func TestEntryAccessors(t *testing.T) {
	b := &LocalFiles{Dir: t.TempDir()}
	e := NewEntry(b, "k", func() int { return 0 })

	if e.Key() != "k" {
		t.Errorf("expected key k, got %q", e.Key())
	}
	if e.Backing() != Backing(b) {
		t.Error("expected the constructing backing")
	}
}
