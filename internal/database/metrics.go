package database

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics measures result store calls for whichever backend is configured.
type Metrics struct {
	backend         string
	queryDuration   metric.Float64Histogram
	conditionalPuts metric.Int64Counter
}

func NewMetrics(meter metric.Meter, backend string) (*Metrics, error) {
	m := &Metrics{backend: backend}

	var err error

	m.queryDuration, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Result store query duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_query_duration histogram: %w", err)
	}

	m.conditionalPuts, err = meter.Int64Counter(
		"db_conditional_writes_total",
		metric.WithDescription("Conditional writes by whether they created the key"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_conditional_writes counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordQuery(ctx context.Context, operation string, durationSeconds float64) {
	m.queryDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("backend", m.backend),
		attribute.String("operation", operation),
	))
}

// RecordConditionalWrite counts a put-if-absent that created or lost the key.
func (m *Metrics) RecordConditionalWrite(ctx context.Context, created bool) {
	result := "created"
	if !created {
		result = "existing"
	}
	m.conditionalPuts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", m.backend),
		attribute.String("result", result),
	))
}
