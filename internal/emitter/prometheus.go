package emitter

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/yairfalse/idler/pkg/resource"
)

// PrometheusEmitter records query metrics through an OTEL meter.
// The meter is expected to be backed by the Prometheus exporter.
type PrometheusEmitter struct {
	queryDuration metric.Float64Histogram
	queryErrors   metric.Int64Counter
	listedTotal   metric.Int64Counter
	idleResources metric.Int64ObservableGauge

	// last successful count per type, read by the gauge callback
	mu     sync.RWMutex
	counts map[resource.Type]int64
}

// NewPrometheusEmitter creates a Prometheus emitter on the given meter.
func NewPrometheusEmitter(meter metric.Meter) (*PrometheusEmitter, error) {
	e := &PrometheusEmitter{
		counts: make(map[resource.Type]int64),
	}

	if err := e.initMetrics(meter); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return e, nil
}

func (e *PrometheusEmitter) initMetrics(meter metric.Meter) error {
	var err error

	e.queryDuration, err = meter.Float64Histogram(
		"idler_query_duration_seconds",
		metric.WithDescription("Time taken by one provider query"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create query_duration histogram: %w", err)
	}

	e.queryErrors, err = meter.Int64Counter(
		"idler_query_errors_total",
		metric.WithDescription("Total failed provider queries"),
	)
	if err != nil {
		return fmt.Errorf("create query_errors counter: %w", err)
	}

	e.listedTotal, err = meter.Int64Counter(
		"idler_resources_listed_total",
		metric.WithDescription("Total idle resources returned by provider queries"),
	)
	if err != nil {
		return fmt.Errorf("create resources_listed counter: %w", err)
	}

	e.idleResources, err = meter.Int64ObservableGauge(
		"idler_idle_resources",
		metric.WithDescription("Idle resources seen by the last successful query, by type"),
		metric.WithInt64Callback(e.observeCounts),
	)
	if err != nil {
		return fmt.Errorf("create idle_resources gauge: %w", err)
	}

	return nil
}

// Emit records the query result as metrics.
func (e *PrometheusEmitter) Emit(ctx context.Context, result resource.SourceResult) error {
	attrs := metric.WithAttributes(
		attribute.String("provider", result.Provider),
		attribute.String("region", result.Region),
		attribute.String("type", string(result.Type)),
	)

	e.queryDuration.Record(ctx, result.Duration.Seconds(), attrs)

	if !result.OK() {
		e.queryErrors.Add(ctx, 1, attrs)
		return nil
	}

	e.listedTotal.Add(ctx, int64(len(result.Resources)), attrs)

	e.mu.Lock()
	e.counts[result.Type] = int64(len(result.Resources))
	e.mu.Unlock()

	return nil
}

func (e *PrometheusEmitter) observeCounts(_ context.Context, o metric.Int64Observer) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for typ, n := range e.counts {
		o.Observe(n, metric.WithAttributes(attribute.String("type", string(typ))))
	}
	return nil
}

// Close is a no-op for Prometheus emitter.
func (e *PrometheusEmitter) Close() error {
	return nil
}
