package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/lealta/campaign-engine/internal/domain"
)

type MessageRepository interface {
	Create(ctx context.Context, m *domain.MessageRecord) error
	GetByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.MessageRecord, error)
	UpdateDeliveryStatus(ctx context.Context, providerMessageID string, status domain.MessageStatus, at time.Time) error
	CountByCampaign(ctx context.Context, campaignID string) (int64, error)
}

type GormMessageRepo struct {
	db *gorm.DB
}

func NewGormMessageRepo(db *gorm.DB) *GormMessageRepo {
	return &GormMessageRepo{db: db}
}

func (r *GormMessageRepo) Create(ctx context.Context, m *domain.MessageRecord) error {
	model := messageModelFromDomain(m)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if m != nil {
		*m = *messageModelToDomain(model)
	}
	return nil
}

func (r *GormMessageRepo) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.MessageRecord, error) {
	var model MessageRecordModel
	err := r.db.WithContext(ctx).
		Where("provider_message_id = ?", providerMessageID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return messageModelToDomain(&model), nil
}

// UpdateDeliveryStatus applies a provider callback to the ledger. Unknown
// provider message ids yield ErrNotFound so the consumer can drop the event.
func (r *GormMessageRepo) UpdateDeliveryStatus(ctx context.Context, providerMessageID string, status domain.MessageStatus, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&MessageRecordModel{}).
		Where("provider_message_id = ?", providerMessageID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormMessageRepo) CountByCampaign(ctx context.Context, campaignID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&MessageRecordModel{}).
		Where("campaign_id = ?", campaignID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
