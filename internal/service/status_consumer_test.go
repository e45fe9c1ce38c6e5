package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lealta/campaign-engine/internal/domain"
	"github.com/lealta/campaign-engine/internal/queue"
)

func newTestStatusConsumer(t *testing.T, messages *fakeMessageRepo, suppression *fakeSuppressionRepo) *StatusConsumer {
	t.Helper()

	suppressionSvc, err := NewSuppressionService(suppression, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSuppressionService() error = %v", err)
	}

	consumer, err := NewStatusConsumer(messages, suppressionSvc, &fakeConsumer{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewStatusConsumer() error = %v", err)
	}
	consumer.now = func() time.Time { return testNow }

	return consumer
}

func sentRecord(providerMessageID string) *domain.MessageRecord {
	sentAt := testNow.Add(-time.Minute)
	return &domain.MessageRecord{
		ID:                "m1",
		CampaignID:        "c1",
		TenantID:          "t1",
		PhoneNumber:       "+593990000001",
		Status:            domain.MessageSent,
		ProviderMessageID: &providerMessageID,
		SentAt:            &sentAt,
		CreatedAt:         sentAt,
		UpdatedAt:         sentAt,
	}
}

func TestStatusConsumerAppliesDeliveryReceipt(t *testing.T) {
	t.Parallel()

	messages := &fakeMessageRepo{}
	_ = messages.Create(context.Background(), sentRecord("wamid-1"))
	consumer := newTestStatusConsumer(t, messages, newFakeSuppressionRepo())

	err := consumer.HandleEvent(context.Background(), queue.StatusEvent{
		Type:              queue.EventDeliveryStatus,
		TenantID:          "t1",
		ProviderMessageID: "wamid-1",
		Status:            "delivered",
	})
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	stored, err := messages.GetByProviderMessageID(context.Background(), "wamid-1")
	if err != nil {
		t.Fatalf("GetByProviderMessageID() error = %v", err)
	}
	if stored.Status != domain.MessageDelivered {
		t.Fatalf("status = %s, want DELIVERED", stored.Status)
	}
}

func TestStatusConsumerDropsUnknownProviderMessageID(t *testing.T) {
	t.Parallel()

	consumer := newTestStatusConsumer(t, &fakeMessageRepo{}, newFakeSuppressionRepo())

	// Receipts for messages this service never sent are dropped, not retried.
	err := consumer.HandleEvent(context.Background(), queue.StatusEvent{
		Type:              queue.EventDeliveryStatus,
		TenantID:          "t1",
		ProviderMessageID: "wamid-unknown",
		Status:            "read",
	})
	if err != nil {
		t.Fatalf("HandleEvent() error = %v, want nil for unknown receipt", err)
	}
}

func TestStatusConsumerDropsUnknownStatus(t *testing.T) {
	t.Parallel()

	messages := &fakeMessageRepo{}
	_ = messages.Create(context.Background(), sentRecord("wamid-1"))
	consumer := newTestStatusConsumer(t, messages, newFakeSuppressionRepo())

	err := consumer.HandleEvent(context.Background(), queue.StatusEvent{
		Type:              queue.EventDeliveryStatus,
		TenantID:          "t1",
		ProviderMessageID: "wamid-1",
		Status:            "teleported",
	})
	if err != nil {
		t.Fatalf("HandleEvent() error = %v, want nil for unknown status", err)
	}

	stored, _ := messages.GetByProviderMessageID(context.Background(), "wamid-1")
	if stored.Status != domain.MessageSent {
		t.Fatalf("status = %s, want SENT untouched", stored.Status)
	}
}

func TestStatusConsumerInboundOptOutKeyword(t *testing.T) {
	t.Parallel()

	suppression := newFakeSuppressionRepo()
	consumer := newTestStatusConsumer(t, &fakeMessageRepo{}, suppression)

	err := consumer.HandleEvent(context.Background(), queue.StatusEvent{
		Type:        queue.EventInboundMessage,
		TenantID:    "t1",
		PhoneNumber: "+593 99 000 0001",
		Body:        "stop please",
	})
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	suppressed, err := suppression.IsSuppressed(context.Background(), "t1", "+593990000001")
	if err != nil {
		t.Fatalf("IsSuppressed() error = %v", err)
	}
	if !suppressed {
		t.Fatal("expected the normalized number to be suppressed")
	}

	entries, _ := suppression.ListByTenant(context.Background(), "t1", 10)
	if len(entries) != 1 {
		t.Fatalf("suppression entries = %d, want 1", len(entries))
	}
	if entries[0].Method != domain.OptOutMethodKeyword {
		t.Fatalf("method = %s, want KEYWORD", entries[0].Method)
	}
}

func TestStatusConsumerInboundNonKeywordIgnored(t *testing.T) {
	t.Parallel()

	suppression := newFakeSuppressionRepo()
	consumer := newTestStatusConsumer(t, &fakeMessageRepo{}, suppression)

	err := consumer.HandleEvent(context.Background(), queue.StatusEvent{
		Type:        queue.EventInboundMessage,
		TenantID:    "t1",
		PhoneNumber: "+593990000001",
		Body:        "thanks, see you tomorrow",
	})
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	suppressed, _ := suppression.IsSuppressed(context.Background(), "t1", "+593990000001")
	if suppressed {
		t.Fatal("a regular reply must not suppress the number")
	}
}

func TestStatusConsumerUnknownEventType(t *testing.T) {
	t.Parallel()

	consumer := newTestStatusConsumer(t, &fakeMessageRepo{}, newFakeSuppressionRepo())

	err := consumer.HandleEvent(context.Background(), queue.StatusEvent{
		Type:     "mystery",
		TenantID: "t1",
	})
	if err != nil {
		t.Fatalf("HandleEvent() error = %v, want nil for unknown type", err)
	}
}
