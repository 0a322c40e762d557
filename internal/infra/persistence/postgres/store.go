// Package postgres provides a Postgres-backed persistent store that mirrors
// the in-memory semantics while snapshotting both collections into a single
// state table, matching the SQLite adapter's bucket layout.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"agritrack/internal/infra/persistence/memory"
	"agritrack/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/agritrack?sslmode=disable"

	bucketProducts = "products"
	bucketStages   = "stages"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists state to Postgres while reusing the in-memory implementation
// for transactions. Flushes rewrite both buckets; failures are logged and the
// in-memory state stands until the next successful flush.
type Store struct {
	*memory.Store
	db     *sql.DB
	mu     sync.Mutex
	logger domain.Logger
}

// Option configures optional store behavior.
type Option func(*options)

type options struct {
	seed   memory.Snapshot
	logger domain.Logger
}

// WithSeed sets the fallback snapshot applied when no durable state exists
// or the stored payload cannot be decoded.
func WithSeed(seed memory.Snapshot) Option {
	return func(o *options) { o.seed = seed }
}

// WithLogger sets the logger used for load and flush diagnostics.
func WithLogger(logger domain.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN), ensures the state table exists, and hydrates the in-memory
// store from any existing snapshot.
func NewStore(dsn string, engine *domain.RulesEngine, opts ...Option) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newStore(ctx, db, engine, opts...)
}

// NewStoreWithDB wraps an already-open database handle. Intended for tests
// that substitute a stub driver.
func NewStoreWithDB(db *sql.DB, engine *domain.RulesEngine, opts ...Option) (*Store, error) {
	return newStore(context.Background(), db, engine, opts...)
}

func newStore(ctx context.Context, db *sql.DB, engine *domain.RulesEngine, opts ...Option) (*Store, error) {
	cfg := options{logger: domain.NopLogger{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		return nil, err
	}
	s := &Store{Store: memory.NewStore(engine), db: db, logger: cfg.logger}
	s.Store.ImportState(s.load(ctx, cfg.seed))
	return s, nil
}

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

// load reads both buckets, falling back to the seed snapshot on absence or
// any decode failure. Decode failure is never fatal.
func (s *Store) load(ctx context.Context, seed memory.Snapshot) memory.Snapshot {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		s.logger.Warn("postgres load failed, using seed state", "error", err)
		return seed
	}
	defer func() { _ = rows.Close() }()

	payloads := map[string][]byte{}
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			s.logger.Warn("postgres scan failed, using seed state", "error", err)
			return seed
		}
		payloads[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("postgres iterate failed, using seed state", "error", err)
		return seed
	}
	if len(payloads) == 0 {
		return seed
	}

	var snapshot memory.Snapshot
	if err := json.Unmarshal(payloads[bucketProducts], &snapshot.Products); err != nil {
		s.logger.Warn("decode products failed, using seed state", "error", err)
		return seed
	}
	if err := json.Unmarshal(payloads[bucketStages], &snapshot.Stages); err != nil {
		s.logger.Warn("decode stages failed, using seed state", "error", err)
		return seed
	}
	return snapshot
}

func (s *Store) persist(ctx context.Context) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for bucket, collection := range map[string]any{
		bucketProducts: snapshot.Products,
		bucketStages:   snapshot.Stages,
	} {
		data, err := json.Marshal(collection)
		if err != nil {
			retErr = fmt.Errorf("encode %s: %w", bucket, err)
			return retErr
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	return tx.Commit()
}

// RunInTransaction applies the provided function within a transaction, then
// snapshots to Postgres if successful. Flush failures never propagate.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(ctx); pErr != nil {
		s.logger.Error("postgres flush failed, state held in memory only", "error", pErr)
	}
	return res, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }
