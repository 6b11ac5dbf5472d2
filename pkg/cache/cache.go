// Package cache stores compile artifacts in SQLite, keyed by the content
// hash of the compile input. Artifacts are opaque text blobs.
package cache

import (
	"context"
	"database/sql"
	_ "embed"

	_ "github.com/mattn/go-sqlite3"
	"tlog.app/go/errors"

	"github.com/raymyers/ralph-hdl/pkg/pass"
)

//go:embed schema.sql
var schemaSQL string

// Entry is what is kept for one compiled kernel.
type Entry struct {
	Kernel string
	NTL    string
	Report string
}

// Cache is a SQLite backed artifact store. Safe for concurrent use.
type Cache struct {
	db *sql.DB
}

// Open creates or opens the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open cache")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "connect to cache")
	}

	// one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, q := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		schemaSQL,
	} {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "init cache")
		}
	}

	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get looks an entry up. ok is false on a miss.
func (c *Cache) Get(ctx context.Context, key pass.Digest) (e Entry, ok bool, err error) {
	row := c.db.QueryRowContext(ctx, "SELECT kernel, ntl, report FROM artifacts WHERE key = ?", key.String())

	err = row.Scan(&e.Kernel, &e.NTL, &e.Report)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, errors.Wrap(err, "read cache")
	}

	return e, true, nil
}

// Put stores an entry, replacing any previous one under key.
func (c *Cache) Put(ctx context.Context, key pass.Digest, e Entry) error {
	_, err := c.db.ExecContext(ctx, "INSERT OR REPLACE INTO artifacts (key, kernel, ntl, report) VALUES (?, ?, ?, ?)",
		key.String(), e.Kernel, e.NTL, e.Report)
	if err != nil {
		return errors.Wrap(err, "write cache")
	}

	return nil
}

// Len returns the number of stored entries.
func (c *Cache) Len(ctx context.Context) (n int, err error) {
	err = c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM artifacts").Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "count cache")
	}

	return n, nil
}
