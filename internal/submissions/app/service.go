package app

import (
	"log/slog"

	"github.com/dejobratic/ordersubmit/internal/submissions/metrics"
	"github.com/dejobratic/ordersubmit/internal/submissions/ports"
)

// NewService wires the executor chain used by the HTTP layer:
// observability around notification around the core executor.
func NewService(
	store ports.ResultStore,
	notifier ports.SubmissionNotifier,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) Submitter {
	core := NewExecutor(store)
	notifying := NewNotifyingExecutor(core, notifier, logger, metrics)
	return NewObservableExecutor(notifying, logger, metrics)
}
