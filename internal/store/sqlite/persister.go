// Package sqlite persists store snapshots to a single SQLite table, one JSON
// payload per collection.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hms/hms/internal/store"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const DefaultPath = "hms.db"

var _ store.Persister = (*Persister)(nil)

type Persister struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// Open creates the database file and state table if they do not exist.
func Open(ctx context.Context, path string) (*Persister, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Persister{db: db, path: path}, nil
}

// Load reads every bucket. It reports false when the table is empty.
func (p *Persister) Load(ctx context.Context) (store.Snapshot, bool, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return store.Snapshot{}, false, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	raw := make(map[string][]byte)
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return store.Snapshot{}, false, fmt.Errorf("scan: %w", err)
		}
		raw[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return store.Snapshot{}, false, fmt.Errorf("iterate state: %w", err)
	}
	if len(raw) == 0 {
		return store.Snapshot{}, false, nil
	}
	snap, err := store.DecodeBuckets(raw)
	if err != nil {
		return store.Snapshot{}, false, err
	}
	return snap, true, nil
}

// Save upserts every bucket inside one SQL transaction.
func (p *Persister) Save(ctx context.Context, snap store.Snapshot) (retErr error) {
	buckets, err := snap.EncodeBuckets()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range store.Buckets {
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, buckets[bucket]); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	return tx.Commit()
}

func (p *Persister) Close() error { return p.db.Close() }

// Ping checks the database file is still usable.
func (p *Persister) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// DB exposes the underlying sql.DB for tests.
func (p *Persister) DB() *sql.DB { return p.db }

// Path returns the configured database path.
func (p *Persister) Path() string { return p.path }
