package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/lealta/campaign-engine/internal/domain"
)

type fakeAcknowledger struct {
	mu      sync.Mutex
	acks    int
	nacks   int
	rejects int
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks++
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacks++
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejects++
	f.requeue = requeue
	return nil
}

func deliveryWith(t *testing.T, ack *fakeAcknowledger, body []byte) amqp.Delivery {
	t.Helper()
	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		Body:         body,
	}
}

func validEventBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(StatusEvent{
		Type:              EventDeliveryStatus,
		TenantID:          "tenant-1",
		ProviderMessageID: "wamid.001",
		Status:            "DELIVERED",
		Timestamp:         time.Now(),
	})
	if err != nil {
		t.Fatalf("json marshal error = %v", err)
	}
	return body
}

func TestConsumerAcksHandledEvent(t *testing.T) {
	t.Parallel()

	c := NewRabbitMQConsumer(nil, 1, zap.NewNop())
	ack := &fakeAcknowledger{}

	handled := 0
	err := c.handleDelivery(context.Background(), deliveryWith(t, ack, validEventBody(t)), func(ctx context.Context, event StatusEvent) error {
		handled++
		return nil
	})
	if err != nil {
		t.Fatalf("handleDelivery() error = %v", err)
	}
	if handled != 1 {
		t.Fatalf("handler calls = %d, want 1", handled)
	}
	if ack.acks != 1 || ack.nacks != 0 || ack.rejects != 0 {
		t.Fatalf("acks/nacks/rejects = %d/%d/%d, want 1/0/0", ack.acks, ack.nacks, ack.rejects)
	}
}

func TestConsumerRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	c := NewRabbitMQConsumer(nil, 1, zap.NewNop())
	ack := &fakeAcknowledger{}

	err := c.handleDelivery(context.Background(), deliveryWith(t, ack, []byte("{not json")), func(ctx context.Context, event StatusEvent) error {
		t.Fatal("handler must not run for malformed bodies")
		return nil
	})
	if err != nil {
		t.Fatalf("handleDelivery() error = %v", err)
	}
	if ack.rejects != 1 {
		t.Fatalf("rejects = %d, want 1", ack.rejects)
	}
	if ack.requeue {
		t.Fatal("malformed bodies must dead-letter, not requeue")
	}
}

func TestConsumerRejectsInvalidEvent(t *testing.T) {
	t.Parallel()

	c := NewRabbitMQConsumer(nil, 1, zap.NewNop())
	ack := &fakeAcknowledger{}

	body, err := json.Marshal(StatusEvent{Type: EventType("bogus"), TenantID: "tenant-1"})
	if err != nil {
		t.Fatalf("json marshal error = %v", err)
	}

	err = c.handleDelivery(context.Background(), deliveryWith(t, ack, body), func(ctx context.Context, event StatusEvent) error {
		t.Fatal("handler must not run for invalid events")
		return nil
	})
	if err != nil {
		t.Fatalf("handleDelivery() error = %v", err)
	}
	if ack.rejects != 1 || ack.requeue {
		t.Fatalf("rejects/requeue = %d/%v, want 1/false", ack.rejects, ack.requeue)
	}
}

func TestConsumerDeadLettersPermanentHandlerError(t *testing.T) {
	t.Parallel()

	c := NewRabbitMQConsumer(nil, 1, zap.NewNop())
	ack := &fakeAcknowledger{}

	err := c.handleDelivery(context.Background(), deliveryWith(t, ack, validEventBody(t)), func(ctx context.Context, event StatusEvent) error {
		return fmt.Errorf("%w: no ledger entry for %s", domain.ErrNotFound, event.ProviderMessageID)
	})
	if err != nil {
		t.Fatalf("handleDelivery() error = %v", err)
	}
	if ack.rejects != 1 || ack.nacks != 0 {
		t.Fatalf("rejects/nacks = %d/%d, want 1/0 (permanent errors dead-letter)", ack.rejects, ack.nacks)
	}
	if ack.requeue {
		t.Fatal("permanent errors must not requeue")
	}
}

func TestConsumerRequeuesTransientHandlerError(t *testing.T) {
	t.Parallel()

	c := NewRabbitMQConsumer(nil, 1, zap.NewNop())
	ack := &fakeAcknowledger{}

	err := c.handleDelivery(context.Background(), deliveryWith(t, ack, validEventBody(t)), func(ctx context.Context, event StatusEvent) error {
		return errors.New("database unavailable")
	})
	if err != nil {
		t.Fatalf("handleDelivery() error = %v", err)
	}
	if ack.nacks != 1 || ack.rejects != 0 {
		t.Fatalf("nacks/rejects = %d/%d, want 1/0 (transient errors redeliver)", ack.nacks, ack.rejects)
	}
	if !ack.requeue {
		t.Fatal("transient errors must requeue for redelivery")
	}
}
