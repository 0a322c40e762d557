package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMetricsRecorderObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}

	recorder.Observe(context.Background(), "append_stage", true, 15*time.Millisecond)
	recorder.Observe(context.Background(), "append_stage", false, 5*time.Millisecond)
	recorder.Observe(context.Background(), "", true, time.Millisecond)

	if got := testutil.ToFloat64(recorder.operations.WithLabelValues("append_stage", "success")); got != 1 {
		t.Fatalf("expected 1 success observation, got %v", got)
	}
	if got := testutil.ToFloat64(recorder.operations.WithLabelValues("append_stage", "error")); got != 1 {
		t.Fatalf("expected 1 error observation, got %v", got)
	}
	if got := testutil.CollectAndCount(recorder.durations); got != 1 {
		t.Fatalf("expected a single histogram series, got %d", got)
	}
}

func TestPrometheusMetricsRecorderRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}
