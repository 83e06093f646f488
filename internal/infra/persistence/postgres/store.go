// Package postgres provides a Postgres-backed persistent store that mirrors the
// in-memory semantics and snapshots state into a JSONB table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"specimencore/internal/infra/persistence/memory"
	"specimencore/internal/infra/persistence/snapshot"
	"specimencore/internal/media"
	"specimencore/pkg/domain"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/specimencore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists state to Postgres while reusing the in-memory implementation for transactions.
type Store struct {
	*memory.Store
	db    *sql.DB
	mu    sync.Mutex
	codec snapshot.Codec
}

// NewStore opens a Postgres-backed store using dsn (falls back to defaultDSN),
// ensures the snapshot table exists and hydrates the in-memory store from it.
func NewStore(ctx context.Context, dsn string, engine *domain.RulesEngine, vault *media.Vault) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	codec := snapshot.NewCodec(vault)
	snap, err := loadSnapshot(ctx, db, codec)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	mem := memory.NewStore(engine)
	mem.ImportState(snap)
	return &Store{Store: mem, db: db, codec: codec}, nil
}

// RunInTransaction applies fn in memory, then snapshots to Postgres if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure state table: %w", err)
	}
	return nil
}

func loadSnapshot(ctx context.Context, db *sql.DB, codec snapshot.Codec) (memory.Snapshot, error) {
	rows, err := db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	payloads := make(map[string][]byte)
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return memory.Snapshot{}, fmt.Errorf("scan state: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		payloads[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, fmt.Errorf("iterate state: %w", err)
	}
	return codec.Decode(ctx, payloads)
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payloads, live, err := s.codec.Encode(ctx, s.ExportState())
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range snapshot.Buckets {
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, bucket, payloads[bucket]); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return s.codec.Prune(ctx, live)
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
