package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lealta/campaign-engine/internal/domain"
	"github.com/lealta/campaign-engine/internal/queue"
	"github.com/lealta/campaign-engine/internal/repository"
)

// StatusConsumer applies provider callback events: delivery receipts update
// the message ledger, inbound replies feed the opt-out keyword check.
type StatusConsumer struct {
	messages    repository.MessageRepository
	suppression *SuppressionService
	consumer    queue.Consumer
	logger      *zap.Logger
	now         func() time.Time
}

func NewStatusConsumer(
	messages repository.MessageRepository,
	suppression *SuppressionService,
	consumer queue.Consumer,
	logger *zap.Logger,
) (*StatusConsumer, error) {
	if messages == nil {
		return nil, fmt.Errorf("message repository is required")
	}
	if suppression == nil {
		return nil, fmt.Errorf("suppression service is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("queue consumer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StatusConsumer{
		messages:    messages,
		suppression: suppression,
		consumer:    consumer,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// Start consumes the status queue until context cancellation.
func (s *StatusConsumer) Start(ctx context.Context) error {
	return s.consumer.Consume(ctx, queue.StatusQueueName, s.HandleEvent)
}

func (s *StatusConsumer) HandleEvent(ctx context.Context, event queue.StatusEvent) error {
	switch event.Type {
	case queue.EventDeliveryStatus:
		return s.handleDeliveryStatus(ctx, event)
	case queue.EventInboundMessage:
		return s.handleInbound(ctx, event)
	default:
		s.logger.Warn("dropping event with unknown type", zap.String("type", string(event.Type)))
		return nil
	}
}

func (s *StatusConsumer) handleDeliveryStatus(ctx context.Context, event queue.StatusEvent) error {
	status, err := domain.ParseMessageStatusFromString(event.Status)
	if err != nil {
		s.logger.Warn("dropping status event with unknown status",
			zap.String("providerMessageId", event.ProviderMessageID),
			zap.String("status", event.Status),
		)
		return nil
	}

	err = s.messages.UpdateDeliveryStatus(ctx, event.ProviderMessageID, status, s.now().UTC())
	if errors.Is(err, domain.ErrNotFound) {
		// Receipts can arrive for messages sent outside this service.
		s.logger.Debug("dropping receipt for unknown provider message id",
			zap.String("providerMessageId", event.ProviderMessageID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to apply delivery status: %w", err)
	}

	return nil
}

func (s *StatusConsumer) handleInbound(ctx context.Context, event queue.StatusEvent) error {
	if !domain.IsOptOutKeyword(event.Body) {
		return nil
	}

	_, err := s.suppression.OptOut(ctx, event.TenantID, event.PhoneNumber, domain.OptOutMethodKeyword)
	if err != nil {
		return fmt.Errorf("failed to process opt-out keyword: %w", err)
	}

	return nil
}
