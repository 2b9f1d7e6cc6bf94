package app

import (
	"context"
	"log/slog"

	"github.com/dejobratic/ordersubmit/internal/submissions/domain"
	"github.com/dejobratic/ordersubmit/internal/submissions/metrics"
	"github.com/dejobratic/ordersubmit/internal/submissions/ports"
)

// NotifyingExecutor publishes an event for each commit. Replays never publish.
// A failed publish is logged and counted; the committed result is still
// returned because it is already authoritative in the store.
type NotifyingExecutor struct {
	next     Submitter
	notifier ports.SubmissionNotifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewNotifyingExecutor(next Submitter, notifier ports.SubmissionNotifier, logger *slog.Logger, metrics *metrics.Metrics) *NotifyingExecutor {
	return &NotifyingExecutor{
		next:     next,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
}

func (n *NotifyingExecutor) Submit(ctx context.Context, key domain.IdempotencyKey, payload domain.OrderPayload) (domain.Submission, error) {
	submission, err := n.next.Submit(ctx, key, payload)
	if err != nil || submission.Replayed() {
		return submission, err
	}

	if err := n.notifier.PublishSubmitted(ctx, key, submission.Result); err != nil {
		n.metrics.RecordNotificationFailure(ctx)
		n.logger.WarnContext(ctx, "failed to publish submission event",
			"error", err,
			"idempotency_key", key.String(),
		)
	}

	return submission, nil
}
