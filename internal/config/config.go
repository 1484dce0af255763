package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "vstore.toml"

	// DefaultTable is the default SQL table name.
	DefaultTable = "vango_storage"

	// DefaultInspectorAddr is the default inspector listen address.
	DefaultInspectorAddr = "localhost:7465"
)

// Backing types accepted in vstore.toml.
const (
	BackingFile   = "file"
	BackingSQLite = "sqlite"
	BackingMemory = "memory"
)

// Encoder names accepted in vstore.toml.
const (
	EncoderBinary = "binary"
	EncoderJSON   = "json"
)

// Config represents the complete vstore.toml configuration.
type Config struct {
	// Backing selects and locates the storage medium.
	Backing BackingConfig `toml:"backing"`

	// Encoder is the value encoding: "binary" (compressed CBOR, the
	// default) or "json".
	Encoder string `toml:"encoder"`

	// Inspector configures the HTTP inspector server.
	Inspector InspectorConfig `toml:"inspector"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// BackingConfig selects the storage medium.
type BackingConfig struct {
	// Type is "file", "sqlite", or "memory".
	Type string `toml:"type"`

	// Directory is the file backing's root (file type only).
	// Defaults to the user config dir under "vstore".
	Directory string `toml:"directory"`

	// DSN is the database source name (sqlite type only).
	DSN string `toml:"dsn"`

	// Table is the SQL table name (sqlite type only).
	Table string `toml:"table"`
}

// InspectorConfig configures the HTTP inspector server.
type InspectorConfig struct {
	// Addr is the listen address (default: "localhost:7465").
	Addr string `toml:"addr"`
}

// Default returns the configuration used when no vstore.toml exists: the
// file backing in the user config dir with the binary encoder.
func Default() *Config {
	return &Config{
		Backing: BackingConfig{
			Type:  BackingFile,
			Table: DefaultTable,
		},
		Encoder: EncoderBinary,
		Inspector: InspectorConfig{
			Addr: DefaultInspectorAddr,
		},
	}
}

// Load reads the configuration from path. An empty path searches the current
// directory and its parents for vstore.toml, falling back to Default when
// nothing is found.
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := find()
		if err != nil {
			return nil, err
		}
		if found == "" {
			return Default(), nil
		}
		path = found
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	cfg.configPath = path

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Path returns where the config was loaded from, empty for defaults.
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) validate() error {
	switch c.Backing.Type {
	case BackingFile, BackingMemory:
	case BackingSQLite:
		if c.Backing.DSN == "" {
			return fmt.Errorf("backing.dsn is required for type %q", BackingSQLite)
		}
	default:
		return fmt.Errorf("unknown backing.type %q", c.Backing.Type)
	}

	switch c.Encoder {
	case EncoderBinary, EncoderJSON:
	default:
		return fmt.Errorf("unknown encoder %q", c.Encoder)
	}
	return nil
}

// find walks up from the working directory looking for vstore.toml.
func find() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
