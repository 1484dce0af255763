package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/vango-dev/vango-sdk/internal/config"
	"github.com/vango-dev/vango-sdk/pkg/storage"
)

// openBacking builds the backing described by the configuration.
// The returned cleanup releases any resources the backing opened.
func openBacking(configPath string) (storage.Backing, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	enc, err := encoderFor(cfg.Encoder)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Backing.Type {
	case config.BackingFile:
		if cfg.Backing.Directory != "" {
			storage.SetDirectory(cfg.Backing.Directory)
		} else {
			storage.SetDirName("vstore")
		}
		return &storage.LocalFiles{Enc: enc}, func() {}, nil

	case config.BackingSQLite:
		db, err := sql.Open("sqlite", cfg.Backing.DSN)
		if err != nil {
			return nil, nil, err
		}
		b := storage.NewSQLBacking(db,
			storage.WithSQLDialect(storage.DialectSQLite),
			storage.WithSQLTableName(cfg.Backing.Table),
			storage.WithSQLEncoder(enc),
		)
		if err := b.Migrate(context.Background()); err != nil {
			db.Close()
			return nil, nil, err
		}
		return b, func() { db.Close() }, nil

	case config.BackingMemory:
		return storage.NewMemoryStorage(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown backing type %q", cfg.Backing.Type)
}

func encoderFor(name string) (storage.Encoder, error) {
	switch name {
	case config.EncoderBinary:
		return storage.DefaultEncoder{}, nil
	case config.EncoderJSON:
		return storage.JSONEncoder{}, nil
	}
	return nil, fmt.Errorf("unknown encoder %q", name)
}
