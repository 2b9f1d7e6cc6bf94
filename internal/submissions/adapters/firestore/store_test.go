//go:build integration

package firestore_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dejobratic/ordersubmit/internal/submissions/adapters/firestore"
	"github.com/dejobratic/ordersubmit/internal/submissions/domain"
	"github.com/dejobratic/ordersubmit/internal/submissions/ports"
	"github.com/google/uuid"
)

var _ ports.ResultStore = (*firestore.Store)(nil)

func setupStore(t *testing.T) *firestore.Store {
	t.Helper()

	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	client, err := firestore.NewClient(context.Background(), "ordersubmit-test")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return firestore.NewStore(client, "idempotency-"+uuid.NewString())
}

func TestStorePutIfAbsentAndGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	first := domain.NewSuccessResult(domain.OrderPayload{Product: "widget", Qty: 3})

	missing, err := store.Get(ctx, "abc-123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil result, got %+v", missing)
	}

	created, err := store.PutIfAbsent(ctx, "abc-123", first)
	if err != nil || !created {
		t.Fatalf("expected create, got created=%v err=%v", created, err)
	}

	created, err = store.PutIfAbsent(ctx, "abc-123", domain.NewSuccessResult(domain.OrderPayload{Product: "gadget", Qty: 9}))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created {
		t.Error("expected second write to report existing")
	}

	got, err := store.Get(ctx, "abc-123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got == nil || *got != first {
		t.Errorf("expected %+v, got %+v", first, got)
	}
}

func TestStoreKeyWithSlash(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	result := domain.NewSuccessResult(domain.OrderPayload{Product: "widget", Qty: 1})

	if _, err := store.PutIfAbsent(ctx, "orders/1", result); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got, err := store.Get(ctx, "orders/1")
	if err != nil || got == nil {
		t.Fatalf("expected stored result, got %+v err=%v", got, err)
	}
}

func TestStoreConcurrentPutIfAbsent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(qty int64) {
			defer wg.Done()
			created, err := store.PutIfAbsent(ctx, "race", domain.NewSuccessResult(domain.OrderPayload{Product: "widget", Qty: qty}))
			if err != nil {
				t.Errorf("writer %d: %v", qty, err)
				return
			}
			if created {
				wins.Add(1)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("expected exactly one winner, got %d", wins.Load())
	}
}

func TestStorePing(t *testing.T) {
	store := setupStore(t)

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("expected ping to succeed, got %v", err)
	}
}
