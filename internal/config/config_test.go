package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Backing.Type != BackingFile {
		t.Errorf("expected file backing, got %q", cfg.Backing.Type)
	}
	if cfg.Encoder != EncoderBinary {
		t.Errorf("expected binary encoder, got %q", cfg.Encoder)
	}
	if cfg.Inspector.Addr != DefaultInspectorAddr {
		t.Errorf("expected %q, got %q", DefaultInspectorAddr, cfg.Inspector.Addr)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
encoder = "json"

[backing]
type = "sqlite"
dsn = "state.db"
table = "app_state"

[inspector]
addr = "localhost:9000"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Backing.Type != BackingSQLite {
		t.Errorf("expected sqlite, got %q", cfg.Backing.Type)
	}
	if cfg.Backing.DSN != "state.db" {
		t.Errorf("expected state.db, got %q", cfg.Backing.DSN)
	}
	if cfg.Backing.Table != "app_state" {
		t.Errorf("expected app_state, got %q", cfg.Backing.Table)
	}
	if cfg.Encoder != EncoderJSON {
		t.Errorf("expected json, got %q", cfg.Encoder)
	}
	if cfg.Inspector.Addr != "localhost:9000" {
		t.Errorf("expected localhost:9000, got %q", cfg.Inspector.Addr)
	}
	if cfg.Path() != path {
		t.Errorf("expected path %q, got %q", path, cfg.Path())
	}
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[backing]
type = "memory"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Backing.Type != BackingMemory {
		t.Errorf("expected memory, got %q", cfg.Backing.Type)
	}
	if cfg.Encoder != EncoderBinary {
		t.Errorf("unset encoder should default to binary, got %q", cfg.Encoder)
	}
}

func TestLoadRejectsUnknownBacking(t *testing.T) {
	path := writeConfig(t, `
[backing]
type = "carrier-pigeon"
`)

	if _, err := Load(path); err == nil {
		t.Error("expected an error for an unknown backing type")
	}
}

func TestLoadRejectsSQLiteWithoutDSN(t *testing.T) {
	path := writeConfig(t, `
[backing]
type = "sqlite"
`)

	if _, err := Load(path); err == nil {
		t.Error("expected an error for sqlite without dsn")
	}
}

func TestLoadRejectsUnknownEncoder(t *testing.T) {
	path := writeConfig(t, `
encoder = "morse"

[backing]
type = "memory"
`)

	if _, err := Load(path); err == nil {
		t.Error("expected an error for an unknown encoder")
	}
}

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	// Search from a directory tree with no vstore.toml anywhere up to root.
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backing.Type != BackingFile {
		t.Errorf("expected the default config, got %+v", cfg)
	}
	if cfg.Path() != "" {
		t.Errorf("default config should have no path, got %q", cfg.Path())
	}
}

func TestLoadSearchesParentDirectories(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte(`
[backing]
type = "memory"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Chdir(nested)

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backing.Type != BackingMemory {
		t.Errorf("expected the parent config found, got %q", cfg.Backing.Type)
	}
}
