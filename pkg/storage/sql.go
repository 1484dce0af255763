package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vango-dev/vango-sdk/pkg/watch"
)

// SQLBacking persists values in a relational table.
// It works with any database/sql compatible driver (PostgreSQL, MySQL,
// SQLite). Notifications are in-process only; writes made by another process
// against the same database are not observed until the next read.
type SQLBacking struct {
	db        *sql.DB
	tableName string
	dialect   SQLDialect
	enc       Encoder
	timeout   time.Duration
	subs      *subscriptions
}

// SQLDialect represents the SQL dialect for query generation.
type SQLDialect int

const (
	// DialectPostgreSQL uses PostgreSQL syntax ($1, $2 placeholders).
	DialectPostgreSQL SQLDialect = iota
	// DialectMySQL uses MySQL syntax (? placeholders).
	DialectMySQL
	// DialectSQLite uses SQLite syntax (? placeholders).
	DialectSQLite
)

// SQLOption configures SQLBacking behavior.
type SQLOption func(*sqlConfig)

type sqlConfig struct {
	tableName string
	dialect   SQLDialect
	enc       Encoder
	timeout   time.Duration
}

// WithSQLTableName sets the table name for value storage.
// Default: "vango_storage".
func WithSQLTableName(name string) SQLOption {
	return func(c *sqlConfig) {
		c.tableName = name
	}
}

// WithSQLDialect sets the SQL dialect for query generation.
// Default: DialectPostgreSQL.
func WithSQLDialect(dialect SQLDialect) SQLOption {
	return func(c *sqlConfig) {
		c.dialect = dialect
	}
}

// WithSQLEncoder sets the value encoder. Default: the compressed binary
// encoder.
func WithSQLEncoder(enc Encoder) SQLOption {
	return func(c *sqlConfig) {
		c.enc = enc
	}
}

// WithSQLTimeout bounds each statement. Default: 5 seconds.
func WithSQLTimeout(d time.Duration) SQLOption {
	return func(c *sqlConfig) {
		c.timeout = d
	}
}

// NewSQLBacking creates a SQL-backed storage medium. The caller owns db;
// closing it is not this type's job.
func NewSQLBacking(db *sql.DB, opts ...SQLOption) *SQLBacking {
	cfg := &sqlConfig{
		tableName: "vango_storage",
		dialect:   DialectPostgreSQL,
		enc:       Default,
		timeout:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &SQLBacking{
		db:        db,
		tableName: cfg.tableName,
		dialect:   cfg.dialect,
		enc:       cfg.enc,
		timeout:   cfg.timeout,
		subs:      newSubscriptions("sql"),
	}
}

// Name implements the metrics/log label.
func (s *SQLBacking) Name() string { return "sql" }

// Encoder returns the configured value encoder.
func (s *SQLBacking) Encoder() Encoder { return s.enc }

func (s *SQLBacking) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Load implements Backing.
func (s *SQLBacking) Load(key string) (Encoded, bool, error) {
	var query string
	switch s.dialect {
	case DialectPostgreSQL:
		query = fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.tableName)
	default:
		query = fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, s.tableName)
	}

	ctx, cancel := s.ctx()
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// Store implements Backing with a dialect-specific upsert.
func (s *SQLBacking) Store(key string, e Encoded) error {
	value, err := encodedString(e)
	if err != nil {
		return err
	}

	var query string
	switch s.dialect {
	case DialectPostgreSQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET
				value = EXCLUDED.value,
				updated_at = NOW()
		`, s.tableName)
	case DialectMySQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (`+"`key`"+`, value, updated_at)
			VALUES (?, ?, NOW())
			ON DUPLICATE KEY UPDATE
				value = VALUES(value),
				updated_at = NOW()
		`, s.tableName)
	case DialectSQLite:
		query = fmt.Sprintf(`
			INSERT OR REPLACE INTO %s (key, value, updated_at)
			VALUES (?, ?, datetime('now'))
		`, s.tableName)
	}

	ctx, cancel := s.ctx()
	defer cancel()

	_, err = s.db.ExecContext(ctx, query, key, value)
	return err
}

// Remove implements Backing.
func (s *SQLBacking) Remove(key string) error {
	var query string
	switch s.dialect {
	case DialectPostgreSQL:
		query = fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.tableName)
	case DialectMySQL:
		query = fmt.Sprintf(`DELETE FROM %s WHERE `+"`key`"+` = ?`, s.tableName)
	default:
		query = fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, s.tableName)
	}

	ctx, cancel := s.ctx()
	defer cancel()

	_, err := s.db.ExecContext(ctx, query, key)
	return err
}

// Keys implements Lister.
func (s *SQLBacking) Keys() ([]string, error) {
	var query string
	switch s.dialect {
	case DialectMySQL:
		query = fmt.Sprintf("SELECT `key` FROM %s", s.tableName)
	default:
		query = fmt.Sprintf(`SELECT key FROM %s`, s.tableName)
	}

	ctx, cancel := s.ctx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Subscribe implements Subscriber.
func (s *SQLBacking) Subscribe(key string, getter Getter) *watch.Receiver[Payload] {
	return s.subs.subscribe(key, getter)
}

// Unsubscribe implements Subscriber.
func (s *SQLBacking) Unsubscribe(key string) {
	s.subs.unsubscribe(key)
}

// notify broadcasts the key's current value to in-process subscribers.
func (s *SQLBacking) notify(key string) {
	s.subs.notify(key)
}

// Migrate creates the storage table and index if they don't exist.
// Convenience for development and testing; production schemas belong in
// real migrations.
func (s *SQLBacking) Migrate(ctx context.Context) error {
	var query string
	switch s.dialect {
	case DialectPostgreSQL:
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			)
		`, s.tableName)
	case DialectMySQL:
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				`+"`key`"+` VARCHAR(512) PRIMARY KEY,
				value MEDIUMTEXT NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
			)
		`, s.tableName)
	case DialectSQLite:
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				created_at TEXT DEFAULT (datetime('now')),
				updated_at TEXT DEFAULT (datetime('now'))
			)
		`, s.tableName)
	}

	_, err := s.db.ExecContext(ctx, query)
	return err
}
