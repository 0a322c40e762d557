package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Both collections are append-only, so
// the mutation surface is creation only.
type Transaction interface {
	Snapshot() TransactionView
	CreateProduct(Product) (Product, error)
	CreateStage(ProductStage) (ProductStage, error)
	FindProduct(id string) (Product, bool)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	ListProducts() []Product
	ListStages() []ProductStage
	FindProduct(id string) (Product, bool)
	StagesFor(productID string) []ProductStage
}

// RuleView provides read-only access to domain entities for rule evaluation.
type RuleView = TransactionView

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetProduct(id string) (Product, bool)
	ListProducts() []Product
	ListStages() []ProductStage
	StagesFor(productID string) []ProductStage
}
