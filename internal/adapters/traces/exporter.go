// Package traces exposes product trace exports and HTTP access to the
// traceability service. An export materializes a product's full supply-chain
// history into downloadable artifacts stored in the blob store.
package traces

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"agritrack/internal/blob"
	"agritrack/internal/core"
	"agritrack/pkg/domain"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportFormat names a trace artifact encoding.
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
)

// ExportArtifact captures one stored trace artifact.
type ExportArtifact struct {
	ID          string       `json:"id"`
	Format      ExportFormat `json:"format"`
	ContentType string       `json:"content_type"`
	Key         string       `json:"key"`
	SizeBytes   int64        `json:"size_bytes"`
	URL         string       `json:"url,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ExportRecord tracks an export request and its resulting artifacts.
type ExportRecord struct {
	ID          string           `json:"id"`
	ProductID   string           `json:"product_id"`
	Formats     []ExportFormat   `json:"formats"`
	Status      ExportStatus     `json:"status"`
	Error       string           `json:"error,omitempty"`
	Artifacts   []ExportArtifact `json:"artifacts,omitempty"`
	RequestedBy string           `json:"requested_by,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

func (r ExportRecord) copy() ExportRecord {
	dup := r
	dup.Formats = append([]ExportFormat(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]ExportArtifact(nil), r.Artifacts...)
	}
	return dup
}

// ExportInput is an enqueue request for the worker.
type ExportInput struct {
	ProductID   string
	Formats     []ExportFormat
	RequestedBy string
}

// ExportScheduler queues trace export requests and exposes their status.
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error)
	GetExport(id string) (ExportRecord, bool)
}

// ProductSource supplies the product data an export materializes. The core
// service satisfies it.
type ProductSource interface {
	GetProduct(ctx context.Context, id string) (core.Product, bool)
	GetStages(ctx context.Context, productID string) []core.ProductStage
}

// traceDocument is the JSON artifact layout.
type traceDocument struct {
	Product     core.Product    `json:"product"`
	Stages      []stageDocument `json:"stages"`
	GeneratedAt time.Time       `json:"generatedAt"`
}

type stageDocument struct {
	core.ProductStage
	Label string `json:"label"`
}

// Worker executes trace exports asynchronously off an in-memory queue.
type Worker struct {
	source ProductSource
	store  blob.Store
	logger domain.Logger

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id    string
	input ExportInput
}

// NewWorker constructs an export worker over the given product source and
// artifact store. A nil logger discards output.
func NewWorker(source ProductSource, store blob.Store, logger domain.Logger) *Worker {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		source: source,
		store:  store,
		logger: logger,
		queue:  make(chan exportTask, 32),
		jobs:   make(map[string]*ExportRecord),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for in-flight work.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

// EnqueueExport validates the request, registers a queued record, and hands
// it to the worker loop.
func (w *Worker) EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error) {
	productID := strings.TrimSpace(input.ProductID)
	if productID == "" {
		return ExportRecord{}, fmt.Errorf("product id required")
	}
	if _, ok := w.source.GetProduct(ctx, productID); !ok {
		return ExportRecord{}, domain.NotFoundError{Entity: domain.EntityProduct, ID: productID}
	}

	formats := input.Formats
	if len(formats) == 0 {
		formats = []ExportFormat{FormatJSON, FormatCSV}
	}
	uniq := make([]ExportFormat, 0, len(formats))
	seen := make(map[ExportFormat]struct{})
	for _, format := range formats {
		if _, dup := seen[format]; dup {
			continue
		}
		if format != FormatJSON && format != FormatCSV {
			return ExportRecord{}, fmt.Errorf("unsupported export format %s", format)
		}
		uniq = append(uniq, format)
		seen[format] = struct{}{}
	}

	now := time.Now().UTC()
	record := ExportRecord{
		ID:          uuid.NewString(),
		ProductID:   productID,
		Formats:     uniq,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[record.ID] = &record
	snapshot := record.copy()
	w.mu.Unlock()

	select {
	case w.queue <- exportTask{id: record.ID, input: ExportInput{ProductID: productID, Formats: uniq, RequestedBy: input.RequestedBy}}:
	default:
		w.fail(record.ID, "export queue full")
		return ExportRecord{}, fmt.Errorf("export queue full")
	}

	return snapshot, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(task exportTask) {
	w.updateStatus(task.id, ExportStatusRunning)

	product, ok := w.source.GetProduct(w.ctx, task.input.ProductID)
	if !ok {
		w.fail(task.id, fmt.Sprintf("product %s disappeared before export", task.input.ProductID))
		return
	}
	stages := w.source.GetStages(w.ctx, task.input.ProductID)
	doc := traceDocument{
		Product:     product,
		Stages:      make([]stageDocument, 0, len(stages)),
		GeneratedAt: time.Now().UTC(),
	}
	for _, stage := range stages {
		doc.Stages = append(doc.Stages, stageDocument{ProductStage: stage, Label: stage.StageType.Label()})
	}

	artifacts := make([]ExportArtifact, 0, len(task.input.Formats))
	for _, format := range task.input.Formats {
		artifact, payload, err := materialize(format, doc)
		if err != nil {
			w.fail(task.id, err.Error())
			return
		}
		artifact.Key = fmt.Sprintf("traces/%s/%s.%s", product.ID, task.id, format)
		info, err := w.store.Put(w.ctx, artifact.Key, bytes.NewReader(payload), blob.PutOptions{
			ContentType: artifact.ContentType,
			Metadata:    map[string]string{"product_id": product.ID, "export_id": task.id},
		})
		if err != nil {
			w.fail(task.id, fmt.Sprintf("store artifact: %v", err))
			return
		}
		artifact.SizeBytes = info.Size
		artifact.URL = info.URL
		if url, err := w.store.PresignURL(w.ctx, artifact.Key, blob.SignedURLOptions{}); err == nil && url != "" {
			artifact.URL = url
		}
		artifacts = append(artifacts, artifact)
	}

	w.complete(task.id, artifacts)
	w.logger.Info("trace export completed", "export_id", task.id, "product_id", product.ID, "artifacts", len(artifacts))
}

func materialize(format ExportFormat, doc traceDocument) (ExportArtifact, []byte, error) {
	artifact := ExportArtifact{
		ID:        uuid.NewString(),
		Format:    format,
		CreatedAt: time.Now().UTC(),
	}
	switch format {
	case FormatJSON:
		payload, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return ExportArtifact{}, nil, fmt.Errorf("marshal trace json: %w", err)
		}
		artifact.ContentType = "application/json"
		artifact.SizeBytes = int64(len(payload))
		return artifact, payload, nil
	case FormatCSV:
		buf := &bytes.Buffer{}
		writer := csv.NewWriter(buf)
		header := []string{"stage_id", "product_id", "stage_type", "label", "timestamp", "data", "actor"}
		if err := writer.Write(header); err != nil {
			return ExportArtifact{}, nil, err
		}
		for _, stage := range doc.Stages {
			row := []string{
				stage.ID,
				stage.ProductID,
				string(stage.StageType),
				stage.Label,
				stage.Timestamp.UTC().Format(time.RFC3339),
				stage.Data,
				stage.Actor,
			}
			if err := writer.Write(row); err != nil {
				return ExportArtifact{}, nil, err
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return ExportArtifact{}, nil, err
		}
		payload := buf.Bytes()
		artifact.ContentType = "text/csv"
		artifact.SizeBytes = int64(len(payload))
		return artifact, payload, nil
	default:
		return ExportArtifact{}, nil, fmt.Errorf("unsupported export format %s", format)
	}
}

func (w *Worker) updateStatus(id string, status ExportStatus) {
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.UpdatedAt = time.Now().UTC()
	}
	w.mu.Unlock()
}

func (w *Worker) complete(id string, artifacts []ExportArtifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.logger.Warn("trace export failed", "export_id", id, "reason", reason)
}
