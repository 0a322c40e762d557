package core

import (
	"fmt"

	"agritrack/internal/infra/persistence/memory"
	"agritrack/internal/infra/persistence/postgres"
	"agritrack/internal/infra/persistence/sqlite"
	"agritrack/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageConfig selects and parameterizes a persistence backend.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
	Seed        memory.Snapshot
	Logger      Logger
}

// NewMemoryStore constructs the in-memory store with the given rules engine.
func NewMemoryStore(engine *RulesEngine) *memory.Store {
	return memory.NewStore(engine)
}

// NewSQLiteStore constructs the SQLite-backed store.
func NewSQLiteStore(path string, engine *RulesEngine, opts ...sqlite.Option) (*sqlite.Store, error) {
	return sqlite.NewStore(path, engine, opts...)
}

// NewPostgresStore constructs the Postgres-backed store.
func NewPostgresStore(dsn string, engine *RulesEngine, opts ...postgres.Option) (*postgres.Store, error) {
	return postgres.NewStore(dsn, engine, opts...)
}

// OpenPersistentStore selects a backend from the configuration. The driver
// defaults to sqlite when unset. Durable backends fall back to the configured
// seed snapshot when no state exists or the stored payload will not decode.
func OpenPersistentStore(cfg StorageConfig, engine *RulesEngine) (domain.PersistentStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	logger := cfg.Logger
	if logger == nil {
		logger = domain.NopLogger{}
	}
	switch driver {
	case StorageMemory:
		store := memory.NewStore(engine)
		store.ImportState(cfg.Seed)
		return store, nil
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath, engine, sqlite.WithSeed(cfg.Seed), sqlite.WithLogger(logger))
	case StoragePostgres:
		return postgres.NewStore(cfg.PostgresDSN, engine, postgres.WithSeed(cfg.Seed), postgres.WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
