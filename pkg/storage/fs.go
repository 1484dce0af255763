package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/vango-dev/vango-sdk/pkg/watch"
)

// location is the process-wide directory for file-backed storage.
// Set once at startup; reading it while unset is a programming error.
var location atomic.Pointer[string]

// SetDirectory configures the process-wide directory used by LocalFiles
// entries that do not override it. It must be called once, before any
// file-backed entry is constructed; a second call with a different path
// panics.
func SetDirectory(dir string) {
	if !location.CompareAndSwap(nil, &dir) {
		if cur := location.Load(); cur != nil && *cur == dir {
			return
		}
		panic("storage: directory already set")
	}
}

// SetDirName configures the process-wide directory as a subdirectory of the
// user's configuration directory, typically named after the application.
func SetDirName(name string) {
	base, err := os.UserConfigDir()
	if err != nil {
		panic(fmt.Sprintf("storage: cannot resolve user config dir: %v", err))
	}
	SetDirectory(filepath.Join(base, name))
}

// Directory returns the configured process-wide directory.
// Panics when unset: file-backed storage before SetDirectory is a wiring
// error at startup, not a runtime condition.
func Directory() string {
	dir := location.Load()
	if dir == nil {
		panic("storage: call SetDirectory before accessing file-backed storage")
	}
	return *dir
}

// fileSubs is the process-wide subscription registry for file-backed keys.
// Writes through this package notify it directly; writes by other processes
// to the same directory are not observed.
var fileSubs = newSubscriptions("file")

// LocalFiles is a backing that stores one file per key under a directory.
// The file name is the key verbatim and the contents are the encoded value,
// so keys must be path-safe. The zero value uses the process-wide directory
// configured with SetDirectory and the default encoder.
//
// LocalFiles is also a Subscriber: all in-process entries on the same key
// observe each other's writes. Subscriptions are shared process-wide, like
// the directory itself.
type LocalFiles struct {
	// Dir overrides the process-wide directory when non-empty.
	Dir string

	// Enc overrides the default encoder when non-nil.
	Enc Encoder
}

func (l *LocalFiles) dir() string {
	if l.Dir != "" {
		return l.Dir
	}
	return Directory()
}

// Name implements the metrics/log label.
func (l *LocalFiles) Name() string { return "file" }

// Encoder returns the encoder bound to this backing.
func (l *LocalFiles) Encoder() Encoder {
	if l.Enc != nil {
		return l.Enc
	}
	return Default
}

// Load reads the file for key. A missing file or directory is absence, not
// an error.
func (l *LocalFiles) Load(key string) (Encoded, bool, error) {
	data, err := os.ReadFile(filepath.Join(l.dir(), key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return string(data), true, nil
}

// Store writes the full encoded value to the file for key, creating the
// directory if needed.
func (l *LocalFiles) Store(key string, e Encoded) error {
	s, err := encodedString(e)
	if err != nil {
		return err
	}
	path := filepath.Join(l.dir(), key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s), 0o644)
}

// Remove deletes the file for key. A missing file is not an error.
func (l *LocalFiles) Remove(key string) error {
	err := os.Remove(filepath.Join(l.dir(), key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Keys lists the files in the backing directory.
func (l *LocalFiles) Keys() ([]string, error) {
	entries, err := os.ReadDir(l.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, ent := range entries {
		if !ent.IsDir() {
			keys = append(keys, ent.Name())
		}
	}
	return keys, nil
}

// Subscribe implements Subscriber via the process-wide registry.
func (l *LocalFiles) Subscribe(key string, getter Getter) *watch.Receiver[Payload] {
	return fileSubs.subscribe(key, getter)
}

// Unsubscribe implements Subscriber.
func (l *LocalFiles) Unsubscribe(key string) {
	fileSubs.unsubscribe(key)
}

// notify broadcasts the key's current value to in-process subscribers.
// Called by Set after a successful write.
func (l *LocalFiles) notify(key string) {
	fileSubs.notify(key)
}
