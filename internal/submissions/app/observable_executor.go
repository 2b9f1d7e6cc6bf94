package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/ordersubmit/internal/submissions/domain"
	"github.com/dejobratic/ordersubmit/internal/submissions/metrics"
	"github.com/dejobratic/ordersubmit/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ObservableExecutor traces, logs and measures every submission, and reports
// whether it was a commit or a replay.
type ObservableExecutor struct {
	next    Submitter
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableExecutor(next Submitter, logger *slog.Logger, metrics *metrics.Metrics) *ObservableExecutor {
	return &ObservableExecutor{
		next:    next,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableExecutor) Submit(ctx context.Context, key domain.IdempotencyKey, payload domain.OrderPayload) (domain.Submission, error) {
	ctx, span := telemetry.StartSpan(ctx, "SubmitOrder")
	defer span.End()

	telemetry.AddSpanAttributes(span, telemetry.AttrIdempotencyKey.String(key.String()))

	start := time.Now()
	var outcome domain.Outcome
	defer func() {
		o.metrics.RecordSubmission(ctx, outcome, time.Since(start).Seconds())
	}()

	submission, err := o.next.Submit(ctx, key, payload)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "submission failed",
			"error", err,
			"idempotency_key", key.String(),
		)
		return domain.Submission{}, err
	}

	outcome = submission.Outcome
	telemetry.SetSubmissionOutcome(span, string(outcome), submission.Replayed())
	telemetry.AddSpanAttributes(span,
		attribute.String("order.product", submission.Result.Data.Product),
		attribute.Int64("order.qty", submission.Result.Data.Qty),
	)

	if submission.Replayed() {
		o.logger.InfoContext(ctx, "submission replayed",
			"idempotency_key", key.String(),
			"product", submission.Result.Data.Product,
		)
	} else {
		o.logger.InfoContext(ctx, "submission committed",
			"idempotency_key", key.String(),
			"product", submission.Result.Data.Product,
			"qty", submission.Result.Data.Qty,
		)
	}

	telemetry.SetSpanSuccess(span)
	return submission, nil
}
