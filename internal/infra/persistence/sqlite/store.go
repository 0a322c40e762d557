// Package sqlite provides a SQLite-backed persistent store that mirrors the
// in-memory semantics while snapshotting both collections after every
// successful transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"agritrack/internal/infra/persistence/memory"
	"agritrack/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// The two persisted buckets. Each holds a JSON-encoded ordered array and is
// rewritten in full on every flush. No schema tag, no migration path; the
// layout is a documented limitation, not an accident.
const (
	bucketProducts = "products"
	bucketStages   = "stages"
)

// Store persists the in-memory state to a single SQLite table as JSON blobs.
// Persistence is best-effort: a failed flush is logged and the in-memory
// state remains the source of truth until the next successful one.
type Store struct {
	*memory.Store
	db     *sql.DB
	mu     sync.Mutex
	path   string
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

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string, engine *domain.RulesEngine, opts ...Option) (*Store, error) {
	cfg := options{logger: domain.NopLogger{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if path == "" {
		path = "agritrack.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(engine), db: db, path: path, logger: cfg.logger}
	s.Store.ImportState(s.load(cfg.seed))
	return s, nil
}

// load reads both buckets, falling back to the seed snapshot when nothing is
// stored or a payload does not decode. Decode failure is never fatal.
func (s *Store) load(seed memory.Snapshot) memory.Snapshot {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		s.logger.Warn("sqlite load failed, using seed state", "error", err)
		return seed
	}
	defer func() { _ = rows.Close() }()

	payloads := map[string][]byte{}
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			s.logger.Warn("sqlite scan failed, using seed state", "error", err)
			return seed
		}
		payloads[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("sqlite iterate failed, using seed state", "error", err)
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

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
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
		if _, err := tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	return tx.Commit()
}

// RunInTransaction applies the provided function within a transaction, then
// snapshots state to SQLite if successful. Flush failures are logged and
// swallowed; the committed in-memory state stands until the next flush.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		s.logger.Error("sqlite flush failed, state held in memory only", "error", pErr)
	}
	return res, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
