package metrics

import (
	"context"
	"fmt"

	"github.com/dejobratic/ordersubmit/internal/submissions/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const outcomeError = "error"

type Metrics struct {
	submissionsTotal     metric.Int64Counter
	submissionDuration   metric.Float64Histogram
	notificationFailures metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.submissionsTotal, err = meter.Int64Counter(
		"order_submissions_total",
		metric.WithDescription("Total order submissions by outcome"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_submissions_total counter: %w", err)
	}

	m.submissionDuration, err = meter.Float64Histogram(
		"order_submission_duration_seconds",
		metric.WithDescription("Duration of order submissions"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_submission_duration histogram: %w", err)
	}

	m.notificationFailures, err = meter.Int64Counter(
		"order_submission_notification_failures_total",
		metric.WithDescription("Committed submissions whose event could not be published"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_submission_notification_failures counter: %w", err)
	}

	return m, nil
}

// RecordSubmission counts one submission. An empty outcome means it failed.
func (m *Metrics) RecordSubmission(ctx context.Context, outcome domain.Outcome, durationSeconds float64) {
	label := string(outcome)
	if label == "" {
		label = outcomeError
	}
	attrs := metric.WithAttributes(attribute.String("outcome", label))
	m.submissionsTotal.Add(ctx, 1, attrs)
	m.submissionDuration.Record(ctx, durationSeconds, attrs)
}

func (m *Metrics) RecordNotificationFailure(ctx context.Context) {
	m.notificationFailures.Add(ctx, 1)
}
