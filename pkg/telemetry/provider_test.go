package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/constraintd/constraintd/core"
)

func newTestProvider(t *testing.T) (*Provider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	p, err := newProvider(context.Background(), "constraintd-test", tracetest.NewInMemoryExporter(), sdkmetric.WithReader(reader))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p, reader
}

func findMetric(t *testing.T, rm *metricdata.ResourceMetrics, name string) bool {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return true
			}
		}
	}
	return false
}

func TestRecordResolutionEmitsCounterAndHistogram(t *testing.T) {
	p, reader := newTestProvider(t)
	p.RecordResolution(context.Background(), true, 2*time.Millisecond)
	p.RecordResolution(context.Background(), false, 5*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	assert.True(t, findMetric(t, &rm, "resolver_resolutions_total"))
	assert.True(t, findMetric(t, &rm, "resolver_resolution_duration_seconds"))
}

func TestRecordActivationTracksBudgetExceeded(t *testing.T) {
	p, reader := newTestProvider(t)
	p.RecordActivation(context.Background(), 10*time.Millisecond, true)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	assert.True(t, findMetric(t, &rm, "activation_duration_seconds"))
	assert.True(t, findMetric(t, &rm, "activation_budget_exceeded_total"))
}

func TestResolverMetricsSourceFeedsGauges(t *testing.T) {
	p, reader := newTestProvider(t)
	p.RegisterResolverMetricsSource(func() core.ResolverMetrics {
		return core.ResolverMetrics{
			CacheHits:           3,
			CacheMisses:         1,
			PeakResolutionNanos: int64(7 * time.Millisecond),
		}
	})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	assert.True(t, findMetric(t, &rm, "resolver_cache_hit_ratio"))
	assert.True(t, findMetric(t, &rm, "resolver_peak_resolution_duration_seconds"))
}

func TestShutdownIsIdempotent(t *testing.T) {
	p, _ := newTestProvider(t)
	require.NoError(t, p.Shutdown(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))
}
