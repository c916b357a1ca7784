package observability

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestManager builds a manager backed by a manual reader so tests can
// collect what the instruments recorded.
func newTestManager(t *testing.T) (*ObservabilityManager, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	om := &ObservabilityManager{
		config:        ObservabilityConfig{ServiceName: "applykit-test", Enabled: true},
		meterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
	if err := om.initCustomMetrics(); err != nil {
		t.Fatalf("initCustomMetrics failed: %v", err)
	}
	return om, reader
}

func collectMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func counterValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %s is %T, want Sum[int64]", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestTrackAIOperationRecordsMetrics(t *testing.T) {
	om, reader := newTestManager(t)
	m := om.GetMetrics()

	err := m.TrackAIOperationWithTokens(context.Background(), "generate_cv",
		func(context.Context) *AIOperationResult {
			return &AIOperationResult{TokenUsage: &TokenUsage{
				InputTokens:  100,
				OutputTokens: 40,
				TotalTokens:  140,
			}}
		}, om)
	if err != nil {
		t.Fatalf("TrackAIOperationWithTokens failed: %v", err)
	}

	requests := collectMetric(t, reader, "applykit_ai_requests_total")
	if requests == nil {
		t.Fatal("request counter was not recorded")
	}
	if got := counterValue(t, requests); got != 1 {
		t.Errorf("request count = %d, want 1", got)
	}

	duration := collectMetric(t, reader, "applykit_ai_processing_duration_seconds")
	if duration == nil {
		t.Fatal("duration histogram was not recorded")
	}

	tokens := collectMetric(t, reader, "applykit_ai_token_usage_total")
	if tokens == nil {
		t.Fatal("token usage histogram was not recorded")
	}
	hist, ok := tokens.Data.(metricdata.Histogram[int64])
	if !ok {
		t.Fatalf("token usage is %T, want Histogram[int64]", tokens.Data)
	}
	// One series each for input, output, and total tokens
	if len(hist.DataPoints) != 3 {
		t.Errorf("token usage series = %d, want 3", len(hist.DataPoints))
	}
}

func TestTrackAIOperationCountsErrors(t *testing.T) {
	om, reader := newTestManager(t)
	m := om.GetMetrics()

	wantErr := fmt.Errorf("model unavailable")
	err := m.TrackAIOperationWithTokens(context.Background(), "analyze_job",
		func(context.Context) *AIOperationResult {
			return &AIOperationResult{Error: wantErr}
		}, om)
	if !stderrors.Is(err, wantErr) {
		t.Fatalf("expected operation error to pass through, got %v", err)
	}

	errorCount := collectMetric(t, reader, "applykit_ai_errors_total")
	if errorCount == nil {
		t.Fatal("error counter was not recorded")
	}
	if got := counterValue(t, errorCount); got != 1 {
		t.Errorf("error count = %d, want 1", got)
	}
}

func TestTrackAIOperationWithoutManager(t *testing.T) {
	var om *ObservabilityManager
	m := om.GetMetrics()

	called := false
	wantErr := fmt.Errorf("still surfaced")
	err := m.TrackAIOperationWithTokens(context.Background(), "extract_profile",
		func(context.Context) *AIOperationResult {
			called = true
			return &AIOperationResult{Error: wantErr}
		}, om)

	if !called {
		t.Error("operation must run even without instruments")
	}
	if !stderrors.Is(err, wantErr) {
		t.Errorf("expected operation error to pass through, got %v", err)
	}
}

func TestDefaultManagerRegistry(t *testing.T) {
	om, _ := newTestManager(t)
	SetDefault(om)
	t.Cleanup(func() { SetDefault(nil) })

	if Default() != om {
		t.Error("Default() did not return the registered manager")
	}
}
