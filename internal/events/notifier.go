package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dejobratic/ordersubmit/internal/submissions/domain"
	"github.com/dejobratic/ordersubmit/internal/telemetry"
	"github.com/nats-io/nats.go"
)

const (
	DefaultSubject = "orders.submitted"

	eventTypeSubmitted = "order.submitted"
	headerTraceID      = "x-trace-id"
	headerEventType    = "x-event-type"
	headerKey          = "x-idempotency-key"
)

// SubmittedEvent is the payload published after a fresh commit.
type SubmittedEvent struct {
	IdempotencyKey string `json:"idempotency_key"`
	Product        string `json:"product"`
	Qty            int64  `json:"qty"`
}

// MsgPublisher is the subset of *nats.Conn the notifier needs.
type MsgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NATSNotifier publishes submission events to a single subject.
type NATSNotifier struct {
	conn    MsgPublisher
	subject string
	metrics *Metrics
}

func NewNATSNotifier(conn MsgPublisher, subject string, metrics *Metrics) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{conn: conn, subject: subject, metrics: metrics}
}

// Connect dials NATS with the service name attached to the connection.
func Connect(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url, nats.Name(name))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}

func (n *NATSNotifier) PublishSubmitted(ctx context.Context, key domain.IdempotencyKey, result domain.StoredResult) error {
	if n == nil || n.conn == nil {
		return nil
	}

	payload, err := json.Marshal(SubmittedEvent{
		IdempotencyKey: key.String(),
		Product:        result.Data.Product,
		Qty:            result.Data.Qty,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &nats.Msg{
		Subject: n.subject,
		Data:    payload,
		Header: nats.Header{
			headerTraceID:   {telemetry.TraceID(ctx)},
			headerEventType: {eventTypeSubmitted},
			headerKey:       {key.String()},
		},
	}

	start := time.Now()
	err = n.conn.PublishMsg(msg)
	n.metrics.RecordPublish(ctx, n.subject, time.Since(start).Seconds(), err == nil)
	if err != nil {
		return fmt.Errorf("publish %s: %w", n.subject, err)
	}
	return nil
}
