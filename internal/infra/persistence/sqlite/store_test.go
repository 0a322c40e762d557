package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"agritrack/internal/infra/persistence/memory"
	"agritrack/pkg/domain"
)

func TestPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	var product domain.Product
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var e error
		product, e = tx.CreateProduct(domain.Product{
			Name:         "Beras Organik",
			FarmLocation: "Subang",
			HarvestDate:  domain.NewDate(2023, time.October, 15),
			Variety:      "Pandan Wangi",
		})
		if e != nil {
			return e
		}
		_, e = tx.CreateStage(domain.ProductStage{ProductID: product.ID, StageType: domain.StageHarvest, Data: "Panen dilakukan secara manual", Actor: "petani-001"})
		return e
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer func() { _ = reloaded.Close() }()

	got, ok := reloaded.GetProduct(product.ID)
	if !ok {
		t.Fatalf("product %s missing after reload", product.ID)
	}
	if got != product {
		t.Fatalf("field mismatch after reload:\n got %+v\nwant %+v", got, product)
	}
	stages := reloaded.StagesFor(product.ID)
	if len(stages) != 1 || stages[0].Data != "Panen dilakukan secara manual" || stages[0].Actor != "petani-001" {
		t.Fatalf("unexpected stages after reload: %+v", stages)
	}
}

func TestReloadPreservesInsertionOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	var productID string
	entries := []string{"Panen manual", "Pencucian dan sortasi", "Pengiriman ke distributor"}
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		p, e := tx.CreateProduct(domain.Product{Name: "Kopi Arabica"})
		if e != nil {
			return e
		}
		productID = p.ID
		for _, data := range entries {
			if _, e := tx.CreateStage(domain.ProductStage{ProductID: productID, Data: data, Actor: "petani-001"}); e != nil {
				return e
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_ = store.Close()

	reloaded, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer func() { _ = reloaded.Close() }()
	stages := reloaded.StagesFor(productID)
	if len(stages) != len(entries) {
		t.Fatalf("expected %d stages, got %d", len(entries), len(stages))
	}
	for i, stage := range stages {
		if stage.Data != entries[i] {
			t.Fatalf("stage %d = %q, want %q", i, stage.Data, entries[i])
		}
	}
}

func TestEmptyDatabaseUsesSeed(t *testing.T) {
	seed := memory.Snapshot{
		Products: []domain.Product{{ID: "mock-001", Name: "Beras Organik", FarmLocation: "Subang", Variety: "Pandan Wangi"}},
		Stages:   []domain.ProductStage{{ID: "stage-001", ProductID: "mock-001", StageType: domain.StageHarvest, Data: "Panen dilakukan secara manual", Actor: "petani-001"}},
	}
	store, err := NewStore(filepath.Join(t.TempDir(), "state.db"), domain.NewRulesEngine(), WithSeed(seed))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer func() { _ = store.Close() }()
	if _, ok := store.GetProduct("mock-001"); !ok {
		t.Fatal("seed product not applied on empty database")
	}
	if got := store.StagesFor("mock-001"); len(got) != 1 {
		t.Fatalf("expected 1 seed stage, got %d", len(got))
	}
}

func TestCorruptPayloadFallsBackToSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	if _, err := store.DB().Exec(`INSERT INTO state(bucket,payload) VALUES('products', 'not-json'), ('stages', '[]')`); err != nil {
		t.Fatalf("corrupt state: %v", err)
	}
	_ = store.Close()

	seed := memory.Snapshot{Products: []domain.Product{{ID: "mock-002", Name: "Kopi Arabica"}}}
	reloaded, err := NewStore(path, domain.NewRulesEngine(), WithSeed(seed))
	if err != nil {
		t.Fatalf("reload with corrupt payload should not be fatal: %v", err)
	}
	defer func() { _ = reloaded.Close() }()
	if _, ok := reloaded.GetProduct("mock-002"); !ok {
		t.Fatal("seed not applied after decode failure")
	}
}
