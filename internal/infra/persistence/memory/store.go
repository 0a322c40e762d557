// Package memory provides the in-memory implementation of the traceability
// persistence store used for tests and ephemeral environments. It is also the
// transactional engine the durable adapters build upon.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"agritrack/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Product aliases domain.Product for in-memory persistence operations.
	Product = domain.Product
	// ProductStage aliases domain.ProductStage.
	ProductStage = domain.ProductStage
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

// memoryState holds both collections in insertion order. Insertion order is
// part of the model: stage history and listing stability depend on it, so
// slices are authoritative and the id indexes are derived.
type memoryState struct {
	products     []Product
	stages       []ProductStage
	productIndex map[string]int
	stageIndex   map[string]int
}

func newMemoryState() memoryState {
	return memoryState{
		productIndex: make(map[string]int),
		stageIndex:   make(map[string]int),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	cloned.products = append([]Product(nil), s.products...)
	cloned.stages = append([]ProductStage(nil), s.stages...)
	for k, v := range s.productIndex {
		cloned.productIndex[k] = v
	}
	for k, v := range s.stageIndex {
		cloned.stageIndex[k] = v
	}
	return cloned
}

// Snapshot is the serializable form of the store state: two ordered arrays,
// matching the persisted bucket layout.
type Snapshot struct {
	Products []Product      `json:"products"`
	Stages   []ProductStage `json:"stages"`
}

// Store provides an in-memory transactional store for the traceability domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the store clock. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now != nil {
		s.nowFn = now
	}
}

func (s *Store) newID(prefix string) string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return prefix + "-" + hex.EncodeToString(b[:])
}

// memTx is a mutation set applied to a cloned state and committed atomically.
type memTx struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

var _ domain.Transaction = (*memTx)(nil)

// view exposes a read-only snapshot of state to rules and readers.
type view struct {
	state *memoryState
}

var _ domain.TransactionView = view{}

// ListProducts returns all products within the snapshot, in insertion order.
func (v view) ListProducts() []Product {
	return append([]Product(nil), v.state.products...)
}

// ListStages returns all stages within the snapshot, in insertion order.
func (v view) ListStages() []ProductStage {
	return append([]ProductStage(nil), v.state.stages...)
}

// FindProduct retrieves a product by ID from the snapshot.
func (v view) FindProduct(id string) (Product, bool) {
	idx, ok := v.state.productIndex[id]
	if !ok {
		return Product{}, false
	}
	return v.state.products[idx], true
}

// StagesFor returns the stages referencing productID, in insertion order.
// The result is an empty slice, never nil, when no stages match.
func (v view) StagesFor(productID string) []ProductStage {
	out := make([]ProductStage, 0)
	for _, stage := range v.state.stages {
		if stage.ProductID == productID {
			out = append(out, stage)
		}
	}
	return out
}

// Snapshot returns a read-only view of the transactional state.
func (tx *memTx) Snapshot() TransactionView {
	return view{state: &tx.state}
}

// FindProduct retrieves a product by ID from the transactional state.
func (tx *memTx) FindProduct(id string) (Product, bool) {
	return view{state: &tx.state}.FindProduct(id)
}

// CreateProduct stores a new product within the transaction. The id is
// assigned here when absent; callers never pick product ids.
func (tx *memTx) CreateProduct(p Product) (Product, error) {
	if p.ID == "" {
		p.ID = tx.store.newID("prod")
	}
	if _, exists := tx.state.productIndex[p.ID]; exists {
		return Product{}, fmt.Errorf("product %q already exists", p.ID)
	}
	tx.state.productIndex[p.ID] = len(tx.state.products)
	tx.state.products = append(tx.state.products, p)
	tx.changes = append(tx.changes, Change{Entity: domain.EntityProduct, Action: domain.ActionCreate, After: p})
	return p, nil
}

// CreateStage appends a stage record within the transaction. The id and
// timestamp are store-assigned, never caller-supplied.
func (tx *memTx) CreateStage(stage ProductStage) (ProductStage, error) {
	if stage.ID == "" {
		stage.ID = tx.store.newID("stage")
	}
	if _, exists := tx.state.stageIndex[stage.ID]; exists {
		return ProductStage{}, fmt.Errorf("stage %q already exists", stage.ID)
	}
	stage.Timestamp = tx.now
	tx.state.stageIndex[stage.ID] = len(tx.state.stages)
	tx.state.stages = append(tx.state.stages, stage)
	tx.changes = append(tx.changes, Change{Entity: domain.EntityStage, Action: domain.ActionCreate, After: stage})
	return stage, nil
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Registered rules evaluate against the staged state; blocking violations
// abort the commit.
func (s *Store) RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view{state: &tx.state}, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(view{state: &snapshot})
}

// GetProduct retrieves a product by ID from committed state.
func (s *Store) GetProduct(id string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.FindProduct(id)
}

// ListProducts returns a snapshot copy of all products in insertion order.
func (s *Store) ListProducts() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListProducts()
}

// ListStages returns a snapshot copy of all stages in insertion order.
func (s *Store) ListStages() []ProductStage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListStages()
}

// StagesFor returns the stages recorded for a product, in insertion order.
func (s *Store) StagesFor(productID string) []ProductStage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.StagesFor(productID)
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Products: append([]Product(nil), s.state.products...),
		Stages:   append([]ProductStage(nil), s.state.stages...),
	}
}

// ImportState replaces the store state with the provided snapshot,
// preserving the snapshot's ordering and rebuilding the id indexes.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := newMemoryState()
	state.products = append([]Product(nil), snapshot.Products...)
	state.stages = append([]ProductStage(nil), snapshot.Stages...)
	for i, p := range state.products {
		state.productIndex[p.ID] = i
	}
	for i, st := range state.stages {
		state.stageIndex[st.ID] = i
	}
	s.state = state
}
