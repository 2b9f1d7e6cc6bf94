package ports

import (
	"context"

	"github.com/dejobratic/ordersubmit/internal/submissions/domain"
)

// SubmissionNotifier announces committed submissions to downstream consumers.
type SubmissionNotifier interface {
	PublishSubmitted(ctx context.Context, key domain.IdempotencyKey, result domain.StoredResult) error
}
