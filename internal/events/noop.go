package events

import (
	"context"
	"log/slog"

	"github.com/dejobratic/ordersubmit/internal/submissions/domain"
)

// NoopNotifier logs events instead of publishing them. Used when NATS is not configured.
type NoopNotifier struct {
	logger *slog.Logger
}

func NewNoopNotifier(logger *slog.Logger) *NoopNotifier {
	return &NoopNotifier{logger: logger}
}

func (n *NoopNotifier) PublishSubmitted(ctx context.Context, key domain.IdempotencyKey, result domain.StoredResult) error {
	n.logger.DebugContext(ctx, "event::order_submitted",
		"idempotency_key", key.String(),
		"product", result.Data.Product,
		"qty", result.Data.Qty,
	)
	return nil
}
