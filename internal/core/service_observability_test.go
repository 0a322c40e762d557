package core

import (
	"bytes"
	"context"
	"expvar"
	"strings"
	"testing"
	"time"

	"agritrack/pkg/domain"
)

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	ended []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

func TestServiceEmitsMetricsTracesAndAudit(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2023, time.November, 5, 9, 0, 0, 0, time.UTC)
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	audit := NewMemoryAuditLog()

	svc := NewInMemoryService(nil,
		WithClock(func() time.Time { return fixed }),
		WithIdentityGate(domain.StaticGate(domain.Authenticated("petani-001"))),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithAuditRecorder(audit),
	)

	p, err := svc.CreateProduct(ctx, "Beras Organik", "Subang", domain.NewDate(2023, time.October, 15), "Pandan Wangi")
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := svc.AppendStage(ctx, p.ID, StageHarvest, "Panen dilakukan secara manual"); err != nil {
		t.Fatalf("append stage: %v", err)
	}
	if _, err := svc.AppendStage(ctx, "missing", StageHarvest, "Panen dilakukan secara manual"); err == nil {
		t.Fatalf("expected append against missing product to fail")
	}

	for _, op := range []string{"create_product", "append_stage"} {
		if !metrics.has(op, true) {
			t.Fatalf("expected metrics success entry for %s", op)
		}
		if !tracer.has(op, true) {
			t.Fatalf("expected finished span for %s", op)
		}
	}
	if !metrics.has("append_stage", false) {
		t.Fatalf("expected metrics error entry for failed append")
	}
	if !tracer.has("append_stage", false) {
		t.Fatalf("expected error span for failed append")
	}

	entries := audit.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 audit entries, got %d", len(entries))
	}
	created := entries[0]
	if created.Operation != "create_product" || created.Status != AuditStatusSuccess {
		t.Fatalf("unexpected first entry: %+v", created)
	}
	if created.ID == "" {
		t.Fatalf("expected generated audit entry id")
	}
	if created.EntityID != p.ID {
		t.Fatalf("expected audit entity id %s, got %s", p.ID, created.EntityID)
	}
	if !created.Timestamp.Equal(fixed) {
		t.Fatalf("expected audit timestamp from service clock, got %v", created.Timestamp)
	}
	failed := entries[2]
	if failed.Status != AuditStatusError || failed.Error == "" {
		t.Fatalf("expected error entry with message, got %+v", failed)
	}
}

func TestExpvarMetricsRecorderExports(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("")
	if recorder.Name() == "" {
		t.Fatalf("expected generated export name")
	}
	recorder.Observe(context.Background(), "test_op", true, 10*time.Millisecond)
	recorder.Observe(context.Background(), "test_op", false, 5*time.Millisecond)

	snapshot := recorder.Snapshot()
	if snapshot.DurationsMS["test_op"] <= 0 {
		t.Fatalf("expected positive duration, snapshot=%+v", snapshot)
	}
	if snapshot.Results["test_op"]["success"] != 1 || snapshot.Results["test_op"]["error"] != 1 {
		t.Fatalf("unexpected results snapshot=%+v", snapshot)
	}
	if v := expvar.Get(recorder.Name()); v == nil {
		t.Fatalf("expected expvar export to be registered")
	} else if !strings.Contains(v.String(), "test_op") {
		t.Fatalf("expected expvar output to contain operation: %s", v.String())
	}
}

func TestJSONTraceTracerExports(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "trace_op")
	span.End(nil)

	entries := tracer.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected single span entry, got %d", len(entries))
	}
	if entries[0].Operation != "trace_op" || entries[0].Status != "success" {
		t.Fatalf("unexpected span entry: %+v", entries[0])
	}
	if !strings.Contains(buf.String(), "\"operation\":\"trace_op\"") {
		t.Fatalf("expected JSON output to contain operation: %q", buf.String())
	}
}

func TestAuditSkipsReadOperations(t *testing.T) {
	audit := NewMemoryAuditLog()
	svc := NewInMemoryService(nil, WithAuditRecorder(audit))
	svc.ListProducts(context.Background())
	svc.GetProduct(context.Background(), "nope")
	if got := len(audit.Entries()); got != 0 {
		t.Fatalf("expected no audit entries for reads, got %d", got)
	}
}
