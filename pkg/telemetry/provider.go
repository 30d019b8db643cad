package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/constraintd/constraintd/core"
)

const meterName = "constraintd"

// Provider wires resolver and activation metrics into an OpenTelemetry
// pipeline. With an empty endpoint it exports traces to stdout, which is
// enough for a developer running `constraintd serve` locally; a non-empty
// endpoint switches to OTLP/gRPC.
type Provider struct {
	tracer trace.Tracer

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	resolutions       metric.Int64Counter
	resolutionLatency metric.Float64Histogram
	activationLatency metric.Float64Histogram
	budgetExceeded    metric.Int64Counter

	snapshotMu sync.RWMutex
	snapshot   func() core.ResolverMetrics

	shutdownOnce sync.Once
}

// New builds a Provider for serviceName. When otlpEndpoint is empty, traces
// are written to stdout instead of exported over the network.
func New(ctx context.Context, serviceName, otlpEndpoint string) (*Provider, error) {
	traceExporter, err := newTraceExporter(ctx, otlpEndpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry: building trace exporter: %w", err)
	}
	return newProvider(ctx, serviceName, traceExporter)
}

// newProvider builds a Provider around an already-constructed trace
// exporter, split out so tests can supply an in-memory exporter and a
// sdkmetric.ManualReader instead of talking to stdout or a collector.
func newProvider(ctx context.Context, serviceName string, traceExporter sdktrace.SpanExporter, metricOpts ...sdkmetric.Option) (*Provider, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("telemetry: service name must not be empty")
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: building resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(append([]sdkmetric.Option{sdkmetric.WithResource(res)}, metricOpts...)...)

	meter := mp.Meter(meterName)

	resolutions, err := meter.Int64Counter("resolver_resolutions_total",
		metric.WithDescription("Number of Resolve calls, labelled by cache hit or miss"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating resolutions counter: %w", err)
	}
	resolutionLatency, err := meter.Float64Histogram("resolver_resolution_duration_seconds",
		metric.WithDescription("Latency of a single Resolve call"), metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating resolution histogram: %w", err)
	}
	activationLatency, err := meter.Float64Histogram("activation_duration_seconds",
		metric.WithDescription("Latency of a single Activate call"), metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating activation histogram: %w", err)
	}
	budgetExceeded, err := meter.Int64Counter("activation_budget_exceeded_total",
		metric.WithDescription("Activate calls that hit the soft deadline and dropped a composite"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating budget counter: %w", err)
	}

	p := &Provider{
		tracer:            tp.Tracer(meterName),
		tracerProvider:    tp,
		meterProvider:     mp,
		resolutions:       resolutions,
		resolutionLatency: resolutionLatency,
		activationLatency: activationLatency,
		budgetExceeded:    budgetExceeded,
	}

	if _, err := meter.Float64ObservableGauge(
		"resolver_cache_hit_ratio",
		metric.WithDescription("Fraction of resolutions served from cache at the last observation"),
		metric.WithFloat64Callback(p.observeCacheHitRatio),
	); err != nil {
		return nil, fmt.Errorf("telemetry: creating cache hit ratio gauge: %w", err)
	}
	if _, err := meter.Float64ObservableGauge(
		"resolver_peak_resolution_duration_seconds",
		metric.WithDescription("Peak observed Resolve latency at the last observation"),
		metric.WithUnit("s"),
		metric.WithFloat64Callback(p.observePeakResolutionDuration),
	); err != nil {
		return nil, fmt.Errorf("telemetry: creating peak duration gauge: %w", err)
	}

	return p, nil
}

func newTraceExporter(ctx context.Context, otlpEndpoint string) (sdktrace.SpanExporter, error) {
	if otlpEndpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	return otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(otlpEndpoint),
		otlptracegrpc.WithInsecure(),
	)
}

// RegisterResolverMetricsSource wires a snapshot function the cache hit
// ratio and peak duration gauges poll on export. Call once at startup with
// the live Resolver's Metrics method.
func (p *Provider) RegisterResolverMetricsSource(source func() core.ResolverMetrics) {
	p.snapshotMu.Lock()
	defer p.snapshotMu.Unlock()
	p.snapshot = source
}

func (p *Provider) observeCacheHitRatio(_ context.Context, obs metric.Float64Observer) error {
	m, ok := p.currentSnapshot()
	if !ok {
		return nil
	}
	total := m.CacheHits + m.CacheMisses
	if total == 0 {
		return nil
	}
	obs.Observe(float64(m.CacheHits) / float64(total))
	return nil
}

func (p *Provider) observePeakResolutionDuration(_ context.Context, obs metric.Float64Observer) error {
	m, ok := p.currentSnapshot()
	if !ok {
		return nil
	}
	obs.Observe(time.Duration(m.PeakResolutionNanos).Seconds())
	return nil
}

func (p *Provider) currentSnapshot() (core.ResolverMetrics, bool) {
	p.snapshotMu.RLock()
	defer p.snapshotMu.RUnlock()
	if p.snapshot == nil {
		return core.ResolverMetrics{}, false
	}
	return p.snapshot(), true
}

// RecordResolution records a single Resolve call outcome.
func (p *Provider) RecordResolution(ctx context.Context, hit bool, duration time.Duration) {
	result := "miss"
	if hit {
		result = "hit"
	}
	attrs := metric.WithAttributes(attribute.String("result", result))
	p.resolutions.Add(ctx, 1, attrs)
	p.resolutionLatency.Record(ctx, duration.Seconds(), attrs)
}

// RecordActivation records a single Activate call.
func (p *Provider) RecordActivation(ctx context.Context, duration time.Duration, budgetExceeded bool) {
	p.activationLatency.Record(ctx, duration.Seconds())
	if budgetExceeded {
		p.budgetExceeded.Add(ctx, 1)
	}
}

// Tracer returns the tracer components can use to start spans around
// resolution or activation work.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes and releases the underlying exporters. Safe to call more
// than once; only the first call does any work.
func (p *Provider) Shutdown(ctx context.Context) error {
	var shutdownErr error
	p.shutdownOnce.Do(func() {
		var errs []error
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down tracer provider: %w", err))
		}
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down meter provider: %w", err))
		}
		shutdownErr = errors.Join(errs...)
	})
	return shutdownErr
}
