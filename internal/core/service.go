package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agritrack/pkg/domain"
)

// Service exposes the traceability operations over a persistent store:
// product registration, authorization-gated stage appends, and lookups.
type Service struct {
	store   domain.PersistentStore
	now     func() time.Time
	logger  Logger
	gate    IdentityGate
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{store: store}
	defaultServiceOptions(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store with the
// given rules engine. Handy for tests and ephemeral runs.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(NewMemoryStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// run wraps a mutation with tracing, metrics, audit, and outcome logging.
// The closure returns the id of the entity it touched for the audit trail.
func (s *Service) run(ctx context.Context, operation string, fn func(ctx context.Context) (string, error)) error {
	ctx, span := s.tracer.Start(ctx, operation)
	start := time.Now()
	entityID, err := fn(ctx)
	duration := time.Since(start)
	s.metrics.Observe(ctx, operation, err == nil, duration)
	span.End(err)
	if err != nil {
		s.recordAuditError(ctx, operation, entityID, err, duration)
		s.logger.Error("operation failed", "operation", operation, "error", err)
		return err
	}
	s.recordAuditSuccess(ctx, operation, entityID, duration)
	s.logger.Debug("operation completed", "operation", operation, "entity_id", entityID)
	return nil
}

// CreateProduct registers a new product and returns the stored record with
// its assigned id. Display fields must be non-empty; names need not be
// unique — two products may share one.
func (s *Service) CreateProduct(ctx context.Context, name, farmLocation string, harvestDate Date, variety string) (Product, error) {
	var created Product
	err := s.run(ctx, "create_product", func(ctx context.Context) (string, error) {
		name = strings.TrimSpace(name)
		farmLocation = strings.TrimSpace(farmLocation)
		variety = strings.TrimSpace(variety)
		if name == "" || farmLocation == "" || variety == "" {
			return "", fmt.Errorf("product name, farm location, and variety must not be empty")
		}
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var e error
			created, e = tx.CreateProduct(Product{
				Name:         name,
				FarmLocation: farmLocation,
				HarvestDate:  harvestDate,
				Variety:      variety,
			})
			return e
		})
		return created.ID, err
	})
	return created, err
}

// AppendStage appends a supply-chain stage to a product's history. Content is
// validated first (cheap, no side effects), then the identity gate is
// consulted, then the mutation runs. The authenticated caller's token becomes
// the stage actor. Appends against a missing product fail with NotFoundError.
func (s *Service) AppendStage(ctx context.Context, productID string, stageType StageType, data string) (ProductStage, error) {
	var created ProductStage
	err := s.run(ctx, "append_stage", func(ctx context.Context) (string, error) {
		if err := domain.ValidateStageData(data); err != nil {
			return "", err
		}
		identity, err := s.gate.CurrentIdentity(ctx)
		if err != nil {
			return "", fmt.Errorf("identity gate: %w", err)
		}
		if !identity.IsAuthenticated() {
			return "", domain.ErrUnauthorized
		}
		_, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if _, ok := tx.FindProduct(productID); !ok {
				return NotFoundError{Entity: EntityProduct, ID: productID}
			}
			var e error
			created, e = tx.CreateStage(ProductStage{
				ProductID: productID,
				StageType: stageType,
				Data:      strings.TrimSpace(data),
				Actor:     identity.Token(),
			})
			return e
		})
		return created.ID, err
	})
	return created, err
}

// sampleStages is the demonstration chain appended by AppendSampleStages.
var sampleStages = []struct {
	stageType StageType
	data      string
}{
	{StageHarvest, "Panen dilakukan secara manual dengan kualitas terbaik"},
	{StageProcess, "Pencucian dan sortasi untuk memastikan kualitas"},
	{StageDistribute, "Pengiriman ke distributor utama"},
}

// AppendSampleStages appends the demo harvest/process/distribute chain to a
// product through the normal gated path.
func (s *Service) AppendSampleStages(ctx context.Context, productID string) ([]ProductStage, error) {
	created := make([]ProductStage, 0, len(sampleStages))
	for _, sample := range sampleStages {
		stage, err := s.AppendStage(ctx, productID, sample.stageType, sample.data)
		if err != nil {
			return created, err
		}
		created = append(created, stage)
	}
	return created, nil
}

// GetProduct retrieves a product by id. Absence is a normal result signaled
// by the boolean, never an error.
func (s *Service) GetProduct(_ context.Context, id string) (Product, bool) {
	return s.store.GetProduct(id)
}

// GetStages returns a product's stages in insertion order. The result is an
// empty slice when the product has no history or does not exist.
func (s *Service) GetStages(_ context.Context, productID string) []ProductStage {
	return s.store.StagesFor(productID)
}

// ListProducts returns a snapshot copy of all products in insertion order.
func (s *Service) ListProducts(_ context.Context) []Product {
	return s.store.ListProducts()
}

// Stats summarizes the product collection for listing consumers.
func (s *Service) Stats(ctx context.Context) ListingStats {
	return CollectStats(s.ListProducts(ctx), s.now())
}
