package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lealta/campaign-engine/internal/domain"
	"github.com/lealta/campaign-engine/internal/repository"
)

// SuppressionService maintains the per-tenant opt-out registry. Entries are
// permanent; nothing here ever removes one.
type SuppressionService struct {
	entries repository.SuppressionRepository
	logger  *zap.Logger
	now     func() time.Time
}

func NewSuppressionService(entries repository.SuppressionRepository, logger *zap.Logger) (*SuppressionService, error) {
	if entries == nil {
		return nil, fmt.Errorf("suppression repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SuppressionService{
		entries: entries,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// OptOut suppresses a phone number for a tenant. Idempotent: opting out an
// already suppressed number keeps the original entry.
func (s *SuppressionService) OptOut(ctx context.Context, tenantID, phoneNumber, method string) (*domain.SuppressionEntry, error) {
	normalized := domain.NormalizePhone(phoneNumber)
	entry := &domain.SuppressionEntry{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		PhoneNumber: normalized,
		Method:      method,
		OptedOutAt:  s.now().UTC(),
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	if err := s.entries.Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record opt-out: %w", err)
	}

	s.logger.Info("phone number suppressed",
		zap.String("tenantId", tenantID),
		zap.String("method", method),
	)

	return entry, nil
}

func (s *SuppressionService) IsSuppressed(ctx context.Context, tenantID, phoneNumber string) (bool, error) {
	return s.entries.IsSuppressed(ctx, tenantID, domain.NormalizePhone(phoneNumber))
}

func (s *SuppressionService) List(ctx context.Context, tenantID string, limit int) ([]domain.SuppressionEntry, error) {
	return s.entries.ListByTenant(ctx, tenantID, limit)
}
