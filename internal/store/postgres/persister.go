// Package postgres persists store snapshots to Postgres as one JSONB row per
// collection.
package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/store"
)

var _ store.Persister = (*Persister)(nil)

const createTable = `CREATE TABLE IF NOT EXISTS hms_state (
	bucket     TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertBucket = `INSERT INTO hms_state (bucket, payload, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (bucket) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`

type Persister struct {
	pool *pgxpool.Pool
	mu   sync.Mutex
}

// NewPool opens and pings a connection pool.
func NewPool(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// New ensures the state table exists. The persister owns the pool and closes
// it on Close.
func New(ctx context.Context, pool *pgxpool.Pool) (*Persister, error) {
	if _, err := pool.Exec(ctx, createTable); err != nil {
		return nil, fmt.Errorf("ensure state table: %w", err)
	}
	return &Persister{pool: pool}, nil
}

func (p *Persister) Load(ctx context.Context) (store.Snapshot, bool, error) {
	rows, err := p.pool.Query(ctx, `SELECT bucket, payload FROM hms_state`)
	if err != nil {
		return store.Snapshot{}, false, fmt.Errorf("select state: %w", err)
	}
	defer rows.Close()

	raw := make(map[string][]byte)
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return store.Snapshot{}, false, fmt.Errorf("scan state: %w", err)
		}
		if len(payload) == 0 {
			continue
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

// Save writes every bucket in one batch inside a transaction.
func (p *Persister) Save(ctx context.Context, snap store.Snapshot) error {
	buckets, err := snap.EncodeBuckets()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, bucket := range store.Buckets {
			batch.Queue(upsertBucket, bucket, string(buckets[bucket]))
		}
		br := tx.SendBatch(ctx, batch)
		for _, bucket := range store.Buckets {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("upsert %s: %w", bucket, err)
			}
		}
		return br.Close()
	})
}

func (p *Persister) Close() error {
	p.pool.Close()
	return nil
}

// Ping reports whether the database is reachable.
func (p *Persister) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }
