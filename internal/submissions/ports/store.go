package ports

import (
	"context"
	"errors"

	"github.com/dejobratic/ordersubmit/internal/submissions/domain"
)

// ResultStore is the write-once registry of submission results.
//
// PutIfAbsent must be atomic with respect to every other caller of the same
// backend, including callers in other processes: it creates the mapping only
// when no value exists and reports whether this call was the one that did.
// A failed write leaves the key absent.
type ResultStore interface {
	// Get returns nil, nil when the key has never been committed.
	Get(ctx context.Context, key domain.IdempotencyKey) (*domain.StoredResult, error)
	PutIfAbsent(ctx context.Context, key domain.IdempotencyKey, result domain.StoredResult) (bool, error)
}

var (
	// ErrStoreUnavailable is wrapped by backends when the store cannot be reached.
	ErrStoreUnavailable = errors.New("result store unavailable")
)
