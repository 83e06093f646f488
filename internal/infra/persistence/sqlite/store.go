// Package sqlite persists the in-memory store to a single SQLite file. Each
// committed transaction rewrites the snapshot buckets; specimen media goes to
// the optional vault.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"specimencore/internal/infra/persistence/memory"
	"specimencore/internal/infra/persistence/snapshot"
	"specimencore/internal/media"
	"specimencore/pkg/domain"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.PersistentStore = (*Store)(nil)

const defaultPath = "specimen.db"

// Store persists the in-memory state to a single SQLite table as JSON blobs.
type Store struct {
	*memory.Store
	db    *sql.DB
	mu    sync.Mutex
	path  string
	codec snapshot.Codec
}

// NewStore opens (or creates) the database at path and hydrates the in-memory
// state from it. vault may be nil to keep media inline.
func NewStore(ctx context.Context, path string, engine *domain.RulesEngine, vault *media.Vault) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite serialises writers; a single connection avoids SQLITE_BUSY between pool members.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(engine), db: db, path: path, codec: snapshot.NewCodec(vault)}
	if err := s.load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	payloads := make(map[string][]byte)
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		payloads[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if len(payloads) == 0 {
		return nil
	}
	snap, err := s.codec.Decode(ctx, payloads)
	if err != nil {
		return err
	}
	s.ImportState(snap)
	return nil
}

func (s *Store) persist(ctx context.Context) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payloads, live, err := s.codec.Encode(ctx, s.ExportState())
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range snapshot.Buckets {
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, payloads[bucket]); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return s.codec.Prune(ctx, live)
}

// RunInTransaction applies fn in memory, then snapshots state to SQLite if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(ctx); pErr != nil {
		return res, fmt.Errorf("persist: %w", pErr)
	}
	return res, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
