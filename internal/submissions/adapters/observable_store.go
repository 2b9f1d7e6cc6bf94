package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/ordersubmit/internal/database"
	"github.com/dejobratic/ordersubmit/internal/submissions/domain"
	"github.com/dejobratic/ordersubmit/internal/submissions/ports"
	"github.com/dejobratic/ordersubmit/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const (
	opGet         = "get_result"
	opPutIfAbsent = "put_result_if_absent"
)

// ObservableStore wraps any ResultStore with spans and query metrics.
type ObservableStore struct {
	store   ports.ResultStore
	backend string
	metrics *database.Metrics
}

func NewObservableStore(store ports.ResultStore, backend string, metrics *database.Metrics) *ObservableStore {
	return &ObservableStore{
		store:   store,
		backend: backend,
		metrics: metrics,
	}
}

func (s *ObservableStore) Get(ctx context.Context, key domain.IdempotencyKey) (*domain.StoredResult, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, s.backend, "Get", opGet)
	defer span.End()

	start := time.Now()
	result, err := s.store.Get(ctx, key)
	s.metrics.RecordQuery(ctx, opGet, time.Since(start).Seconds())

	if err == nil {
		telemetry.AddSpanAttributes(span, attribute.Bool("result.found", result != nil))
	}
	telemetry.FinishSpan(span, err)
	return result, err
}

func (s *ObservableStore) PutIfAbsent(ctx context.Context, key domain.IdempotencyKey, result domain.StoredResult) (bool, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, s.backend, "PutIfAbsent", opPutIfAbsent)
	defer span.End()

	start := time.Now()
	created, err := s.store.PutIfAbsent(ctx, key, result)
	s.metrics.RecordQuery(ctx, opPutIfAbsent, time.Since(start).Seconds())

	if err == nil {
		s.metrics.RecordConditionalWrite(ctx, created)
		telemetry.AddSpanAttributes(span, attribute.Bool("result.created", created))
	}
	telemetry.FinishSpan(span, err)
	return created, err
}
