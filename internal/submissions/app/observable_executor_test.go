package app_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/dejobratic/ordersubmit/internal/submissions/app"
	"github.com/dejobratic/ordersubmit/internal/submissions/domain"
	"github.com/dejobratic/ordersubmit/internal/submissions/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type mockSubmitter struct {
	submitFn func(ctx context.Context, key domain.IdempotencyKey, payload domain.OrderPayload) (domain.Submission, error)
}

func (m *mockSubmitter) Submit(ctx context.Context, key domain.IdempotencyKey, payload domain.OrderPayload) (domain.Submission, error) {
	return m.submitFn(ctx, key, payload)
}

type mockNotifier struct {
	calls     int
	publishFn func(ctx context.Context, key domain.IdempotencyKey, result domain.StoredResult) error
}

func (m *mockNotifier) PublishSubmitted(ctx context.Context, key domain.IdempotencyKey, result domain.StoredResult) error {
	m.calls++
	if m.publishFn != nil {
		return m.publishFn(ctx, key, result)
	}
	return nil
}

type observability struct {
	logs    *bytes.Buffer
	logger  *slog.Logger
	metrics *metrics.Metrics
	reader  *sdkmetric.ManualReader
	spans   *tracetest.InMemoryExporter
}

func newObservability(t *testing.T) *observability {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := metrics.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}

	prev := otel.GetTracerProvider()
	spans := tracetest.NewInMemoryExporter()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(spans)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	logs := &bytes.Buffer{}
	return &observability{
		logs:    logs,
		logger:  slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		metrics: m,
		reader:  reader,
		spans:   spans,
	}
}

func (o *observability) submissionCount(t *testing.T) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := o.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "order_submissions_total" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestObservableExecutor(t *testing.T) {
	payload := domain.OrderPayload{Product: "widget", Qty: 3}

	t.Run("logs commit and records span attributes", func(t *testing.T) {
		obs := newObservability(t)
		next := &mockSubmitter{submitFn: func(ctx context.Context, key domain.IdempotencyKey, p domain.OrderPayload) (domain.Submission, error) {
			return domain.Submission{Result: domain.NewSuccessResult(p), Outcome: domain.OutcomeCommit}, nil
		}}
		executor := app.NewObservableExecutor(next, obs.logger, obs.metrics)

		submission, err := executor.Submit(context.Background(), "abc-123", payload)

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if submission.Outcome != domain.OutcomeCommit {
			t.Errorf("expected commit, got %s", submission.Outcome)
		}
		if !strings.Contains(obs.logs.String(), "submission committed") {
			t.Errorf("expected commit log, got %s", obs.logs.String())
		}

		spans := obs.spans.GetSpans()
		if len(spans) != 1 || spans[0].Name != "SubmitOrder" {
			t.Fatalf("expected one SubmitOrder span, got %v", spans)
		}
		if spans[0].Status.Code != codes.Ok {
			t.Errorf("expected ok status, got %v", spans[0].Status.Code)
		}
		if obs.submissionCount(t) != 1 {
			t.Error("expected one recorded submission")
		}
	})

	t.Run("logs replay distinctly", func(t *testing.T) {
		obs := newObservability(t)
		next := &mockSubmitter{submitFn: func(ctx context.Context, key domain.IdempotencyKey, p domain.OrderPayload) (domain.Submission, error) {
			return domain.Submission{Result: domain.NewSuccessResult(p), Outcome: domain.OutcomeReplay}, nil
		}}
		executor := app.NewObservableExecutor(next, obs.logger, obs.metrics)

		if _, err := executor.Submit(context.Background(), "abc-123", payload); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		logs := obs.logs.String()
		if !strings.Contains(logs, "submission replayed") || strings.Contains(logs, "submission committed") {
			t.Errorf("expected only a replay log, got %s", logs)
		}
	})

	t.Run("records error on failure", func(t *testing.T) {
		obs := newObservability(t)
		failure := errors.New("store down")
		next := &mockSubmitter{submitFn: func(ctx context.Context, key domain.IdempotencyKey, p domain.OrderPayload) (domain.Submission, error) {
			return domain.Submission{}, failure
		}}
		executor := app.NewObservableExecutor(next, obs.logger, obs.metrics)

		_, err := executor.Submit(context.Background(), "abc-123", payload)

		if !errors.Is(err, failure) {
			t.Fatalf("expected failure to propagate, got %v", err)
		}
		if !strings.Contains(obs.logs.String(), "submission failed") {
			t.Errorf("expected failure log, got %s", obs.logs.String())
		}
		if status := obs.spans.GetSpans()[0].Status.Code; status != codes.Error {
			t.Errorf("expected error status, got %v", status)
		}
		if obs.submissionCount(t) != 1 {
			t.Error("expected failed submission to be counted")
		}
	})
}

func TestNotifyingExecutor(t *testing.T) {
	payload := domain.OrderPayload{Product: "widget", Qty: 3}

	commit := &mockSubmitter{submitFn: func(ctx context.Context, key domain.IdempotencyKey, p domain.OrderPayload) (domain.Submission, error) {
		return domain.Submission{Result: domain.NewSuccessResult(p), Outcome: domain.OutcomeCommit}, nil
	}}
	replay := &mockSubmitter{submitFn: func(ctx context.Context, key domain.IdempotencyKey, p domain.OrderPayload) (domain.Submission, error) {
		return domain.Submission{Result: domain.NewSuccessResult(p), Outcome: domain.OutcomeReplay}, nil
	}}

	t.Run("publishes on commit", func(t *testing.T) {
		obs := newObservability(t)
		notifier := &mockNotifier{publishFn: func(ctx context.Context, key domain.IdempotencyKey, result domain.StoredResult) error {
			if key != "abc-123" || result.Data != payload {
				t.Errorf("unexpected event %s %+v", key, result)
			}
			return nil
		}}
		executor := app.NewNotifyingExecutor(commit, notifier, obs.logger, obs.metrics)

		if _, err := executor.Submit(context.Background(), "abc-123", payload); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if notifier.calls != 1 {
			t.Errorf("expected 1 publish, got %d", notifier.calls)
		}
	})

	t.Run("does not publish on replay", func(t *testing.T) {
		obs := newObservability(t)
		notifier := &mockNotifier{}
		executor := app.NewNotifyingExecutor(replay, notifier, obs.logger, obs.metrics)

		if _, err := executor.Submit(context.Background(), "abc-123", payload); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if notifier.calls != 0 {
			t.Errorf("expected no publish, got %d", notifier.calls)
		}
	})

	t.Run("returns committed result when publishing fails", func(t *testing.T) {
		obs := newObservability(t)
		notifier := &mockNotifier{publishFn: func(ctx context.Context, key domain.IdempotencyKey, result domain.StoredResult) error {
			return errors.New("nats unavailable")
		}}
		executor := app.NewNotifyingExecutor(commit, notifier, obs.logger, obs.metrics)

		submission, err := executor.Submit(context.Background(), "abc-123", payload)

		if err != nil {
			t.Fatalf("expected publish failure to be swallowed, got %v", err)
		}
		if submission.Result.Data != payload {
			t.Errorf("expected committed payload, got %+v", submission.Result.Data)
		}
		if !strings.Contains(obs.logs.String(), "failed to publish submission event") {
			t.Errorf("expected warning log, got %s", obs.logs.String())
		}
	})
}

func TestNewServiceChain(t *testing.T) {
	obs := newObservability(t)
	notifier := &mockNotifier{}
	service := app.NewService(newRegistry(), notifier, obs.logger, obs.metrics)

	first, err := service.Submit(context.Background(), "abc-123", domain.OrderPayload{Product: "widget", Qty: 3})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := service.Submit(context.Background(), "abc-123", domain.OrderPayload{Product: "gadget", Qty: 9})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	if first.Outcome != domain.OutcomeCommit || second.Outcome != domain.OutcomeReplay {
		t.Errorf("expected commit then replay, got %s then %s", first.Outcome, second.Outcome)
	}
	if second.Result != first.Result {
		t.Errorf("expected replay of %+v, got %+v", first.Result, second.Result)
	}
	if notifier.calls != 1 {
		t.Errorf("expected a single event, got %d", notifier.calls)
	}
}
