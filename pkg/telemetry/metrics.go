package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records per-operation counters and latencies for the catalog
// service. Purely observational: a nil *Metrics is valid and records nothing.
type Metrics struct {
	ops      metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
}

// NewMetrics builds the catalog instrument set from the global meter
// provider (set up by Setup).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("catalog")

	ops, err := meter.Int64Counter("catalog.operations",
		metric.WithDescription("Completed catalog operations by kind and outcome"))
	if err != nil {
		return nil, fmt.Errorf("operations counter: %w", err)
	}
	failures, err := meter.Int64Counter("catalog.failures",
		metric.WithDescription("Failed catalog operations by kind and failure class"))
	if err != nil {
		return nil, fmt.Errorf("failures counter: %w", err)
	}
	latency, err := meter.Float64Histogram("catalog.operation.duration",
		metric.WithDescription("Catalog operation latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("latency histogram: %w", err)
	}

	return &Metrics{ops: ops, failures: failures, latency: latency}, nil
}

// Record notes one completed operation. failureKind is empty on success.
func (m *Metrics) Record(ctx context.Context, op string, start time.Time, failureKind string) {
	if m == nil {
		return
	}
	outcome := "success"
	if failureKind != "" {
		outcome = "failure"
		m.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("kind", failureKind),
		))
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	)
	m.ops.Add(ctx, 1, attrs)
	m.latency.Record(ctx, float64(time.Since(start).Microseconds())/1000.0, attrs)
}
