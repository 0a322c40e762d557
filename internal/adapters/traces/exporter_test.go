package traces

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"agritrack/internal/blob"
	"agritrack/internal/core"
	"agritrack/pkg/domain"
)

func newExportFixture(t *testing.T) (*core.Service, *Worker, blob.Store) {
	t.Helper()
	svc := core.NewInMemoryService(nil, core.WithIdentityGate(domain.StaticGate(domain.Authenticated("petani-001"))))
	store := blob.NewMemory()
	worker := NewWorker(svc, store, nil)
	worker.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = worker.Stop(ctx)
	})
	return svc, worker, store
}

func waitForExport(t *testing.T, worker *Worker, id string) ExportRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		record, ok := worker.GetExport(id)
		if !ok {
			t.Fatalf("export %s disappeared", id)
		}
		if record.Status == ExportStatusSucceeded || record.Status == ExportStatusFailed {
			return record
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("export %s did not finish in time", id)
	return ExportRecord{}
}

func TestEnqueueExportUnknownProduct(t *testing.T) {
	_, worker, _ := newExportFixture(t)
	_, err := worker.EnqueueExport(context.Background(), ExportInput{ProductID: "ghost"})
	var nf domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestEnqueueExportUnsupportedFormat(t *testing.T) {
	svc, worker, _ := newExportFixture(t)
	p, err := svc.CreateProduct(context.Background(), "Beras Organik", "Subang", domain.NewDate(2023, time.October, 15), "Pandan Wangi")
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := worker.EnqueueExport(context.Background(), ExportInput{ProductID: p.ID, Formats: []ExportFormat{"xml"}}); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestExportProducesArtifacts(t *testing.T) {
	ctx := context.Background()
	svc, worker, store := newExportFixture(t)

	p, err := svc.CreateProduct(ctx, "Kopi Arabica", "Aceh", domain.NewDate(2023, time.September, 20), "Gayo")
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := svc.AppendStage(ctx, p.ID, core.StageHarvest, "Panen dilakukan secara manual"); err != nil {
		t.Fatalf("append harvest: %v", err)
	}
	if _, err := svc.AppendStage(ctx, p.ID, core.StageProcess, "Pengeringan selama 2 hari"); err != nil {
		t.Fatalf("append process: %v", err)
	}

	queued, err := worker.EnqueueExport(ctx, ExportInput{ProductID: p.ID, RequestedBy: "petani-001"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if queued.Status != ExportStatusQueued {
		t.Fatalf("expected queued status, got %s", queued.Status)
	}

	record := waitForExport(t, worker, queued.ID)
	if record.Status != ExportStatusSucceeded {
		t.Fatalf("expected success, got %s (%s)", record.Status, record.Error)
	}
	if record.CompletedAt == nil {
		t.Fatalf("expected completion timestamp")
	}
	if len(record.Artifacts) != 2 {
		t.Fatalf("expected json and csv artifacts, got %d", len(record.Artifacts))
	}

	var jsonArtifact, csvArtifact *ExportArtifact
	for i := range record.Artifacts {
		switch record.Artifacts[i].Format {
		case FormatJSON:
			jsonArtifact = &record.Artifacts[i]
		case FormatCSV:
			csvArtifact = &record.Artifacts[i]
		}
	}
	if jsonArtifact == nil || csvArtifact == nil {
		t.Fatalf("missing artifact formats: %+v", record.Artifacts)
	}

	_, rc, err := store.Get(ctx, jsonArtifact.Key)
	if err != nil {
		t.Fatalf("get json artifact: %v", err)
	}
	defer rc.Close()
	var doc struct {
		Product core.Product `json:"product"`
		Stages  []struct {
			StageType core.StageType `json:"stageType"`
			Label     string         `json:"label"`
		} `json:"stages"`
	}
	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		t.Fatalf("decode trace document: %v", err)
	}
	if doc.Product.ID != p.ID {
		t.Fatalf("unexpected product in trace: %+v", doc.Product)
	}
	if len(doc.Stages) != 2 || doc.Stages[0].Label != "Panen" || doc.Stages[1].Label != "Pengolahan" {
		t.Fatalf("unexpected stages in trace: %+v", doc.Stages)
	}

	_, rc2, err := store.Get(ctx, csvArtifact.Key)
	if err != nil {
		t.Fatalf("get csv artifact: %v", err)
	}
	defer rc2.Close()
	rows, err := csv.NewReader(rc2).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "stage_id" || rows[1][3] != "Panen" {
		t.Fatalf("unexpected csv content: %v", rows[:2])
	}
}

func TestExportDeduplicatesFormats(t *testing.T) {
	ctx := context.Background()
	svc, worker, _ := newExportFixture(t)
	p, err := svc.CreateProduct(ctx, "Beras Organik", "Subang", domain.NewDate(2023, time.October, 15), "Pandan Wangi")
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	queued, err := worker.EnqueueExport(ctx, ExportInput{ProductID: p.ID, Formats: []ExportFormat{FormatJSON, FormatJSON}})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	record := waitForExport(t, worker, queued.ID)
	if record.Status != ExportStatusSucceeded {
		t.Fatalf("expected success, got %s (%s)", record.Status, record.Error)
	}
	if len(record.Artifacts) != 1 {
		t.Fatalf("expected single deduplicated artifact, got %d", len(record.Artifacts))
	}
}

func TestGetExportUnknownID(t *testing.T) {
	_, worker, _ := newExportFixture(t)
	if _, ok := worker.GetExport("nope"); ok {
		t.Fatalf("expected ok=false for unknown export")
	}
}

func TestWorkerStop(t *testing.T) {
	worker := NewWorker(core.NewInMemoryService(nil), blob.NewMemory(), nil)
	worker.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := worker.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestMaterializeCSVEscapesContent(t *testing.T) {
	doc := traceDocument{
		Product: core.Product{ID: "p-1"},
		Stages: []stageDocument{{
			ProductStage: core.ProductStage{ID: "s-1", ProductID: "p-1", StageType: core.StageHarvest, Data: "contains, comma"},
			Label:        "Panen",
		}},
		GeneratedAt: time.Now().UTC(),
	}
	_, payload, err := materialize(FormatCSV, doc)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	rows, err := csv.NewReader(strings.NewReader(string(payload))).ReadAll()
	if err != nil {
		t.Fatalf("csv parse: %v", err)
	}
	if rows[1][5] != "contains, comma" {
		t.Fatalf("expected quoted field to round-trip, got %q", rows[1][5])
	}
}
