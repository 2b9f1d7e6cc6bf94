package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dejobratic/ordersubmit/internal/submissions/domain"
	"github.com/dejobratic/ordersubmit/internal/submissions/ports"
	"github.com/dejobratic/ordersubmit/internal/submissions/validation"
)

// ErrInconsistentStore is returned when the store rejects a conditional write
// but then has no value to replay for the same key.
var ErrInconsistentStore = errors.New("result store rejected write but holds no result")

// Submitter resolves a validated submission to its committed result.
type Submitter interface {
	Submit(ctx context.Context, key domain.IdempotencyKey, payload domain.OrderPayload) (domain.Submission, error)
}

// Executor replays the stored result for a known key or commits a new one.
// It holds no lock of its own: the store's PutIfAbsent decides the single
// winner for a key, across processes.
type Executor struct {
	store ports.ResultStore
}

func NewExecutor(store ports.ResultStore) *Executor {
	return &Executor{store: store}
}

func (e *Executor) Submit(ctx context.Context, key domain.IdempotencyKey, payload domain.OrderPayload) (domain.Submission, error) {
	if key.IsZero() {
		return domain.Submission{}, validation.ErrMissingKey
	}

	existing, err := e.store.Get(ctx, key)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("lookup result: %w", err)
	}
	if existing != nil {
		return replay(*existing), nil
	}

	result := domain.NewSuccessResult(payload)

	created, err := e.store.PutIfAbsent(ctx, key, result)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("commit result: %w", err)
	}
	if created {
		return domain.Submission{Result: result, Outcome: domain.OutcomeCommit}, nil
	}

	// Another submission committed between our lookup and our write.
	winner, err := e.store.Get(ctx, key)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("lookup committed result: %w", err)
	}
	if winner == nil {
		return domain.Submission{}, fmt.Errorf("key %q: %w", key, ErrInconsistentStore)
	}

	return replay(*winner), nil
}

func replay(result domain.StoredResult) domain.Submission {
	return domain.Submission{Result: result, Outcome: domain.OutcomeReplay}
}
