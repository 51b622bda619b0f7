package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// tsLayout keeps timestamps lexically ordered in TEXT columns.
const tsLayout = "2006-01-02T15:04:05Z"

// DB is the SQLite Store.
type DB struct {
	Pool *sql.DB
	now  func() time.Time
}

var _ Store = (*DB)(nil)

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store mkdir: %w", err)
		}
	}
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	return open(dsn, 5*time.Minute)
}

// OpenMemory opens a private in-memory database. Used by tests and dry runs.
func OpenMemory() (*DB, error) {
	// one connection that never expires, or the data goes with it
	return open("file::memory:?_pragma=foreign_keys(1)", 0)
}

func open(dsn string, maxLifetime time.Duration) (*DB, error) {
	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store open: %w", err)
	}

	// sqlite wants 1 writer
	pool.SetMaxOpenConns(1)
	pool.SetConnMaxLifetime(maxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("store ping: %w", err)
	}
	if err := Migrate(pool); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("store migrate: %w", err)
	}
	return &DB{Pool: pool, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (d *DB) Close() error {
	if d == nil || d.Pool == nil {
		return nil
	}
	return d.Pool.Close()
}

func formatTS(t time.Time) string { return t.UTC().Format(tsLayout) }

func sqliteTS(t time.Time) any { return formatTS(t) }

func parseTS(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func parseNullTS(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTS(ns.String)
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTS(*t)
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
