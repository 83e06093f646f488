package core

import (
	"context"
	"fmt"
	"path/filepath"
	"specimencore/internal/infra/persistence/memory"
	"specimencore/internal/infra/persistence/postgres"
	"specimencore/internal/infra/persistence/sqlite"
	"specimencore/internal/media"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageConfig selects and parameterises the persistent store.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
	// DataDir is the default parent of the sqlite file.
	DataDir string
}

// OpenPersistentStore opens the configured backend. Durable backends move media
// into vault when it is non-nil. The sqlite driver is the default.
func OpenPersistentStore(ctx context.Context, cfg StorageConfig, engine *RulesEngine, vault *media.Vault) (PersistentStore, error) {
	switch cfg.Driver {
	case "", StorageSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = filepath.Join(cfg.DataDir, "specimen.db")
		}
		return sqlite.NewStore(ctx, path, engine, vault)
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN, engine, vault)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
