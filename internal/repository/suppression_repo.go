package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lealta/campaign-engine/internal/domain"
)

type SuppressionRepository interface {
	Upsert(ctx context.Context, e *domain.SuppressionEntry) error
	IsSuppressed(ctx context.Context, tenantID, phoneNumber string) (bool, error)
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]domain.SuppressionEntry, error)
}

type GormSuppressionRepo struct {
	db *gorm.DB
}

func NewGormSuppressionRepo(db *gorm.DB) *GormSuppressionRepo {
	return &GormSuppressionRepo{db: db}
}

// Upsert records an opt-out. Re-registering an already suppressed number is a
// no-op; the first entry and its method are kept.
func (r *GormSuppressionRepo) Upsert(ctx context.Context, e *domain.SuppressionEntry) error {
	model := suppressionModelFromDomain(e)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "phone_number"}},
			DoNothing: true,
		}).
		Create(model).Error
}

func (r *GormSuppressionRepo) IsSuppressed(ctx context.Context, tenantID, phoneNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&SuppressionEntryModel{}).
		Where("tenant_id = ? AND phone_number = ?", tenantID, phoneNumber).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormSuppressionRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]domain.SuppressionEntry, error) {
	if limit < 1 {
		limit = 100
	}
	limit = min(limit, 500)

	var models []SuppressionEntryModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("opted_out_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]domain.SuppressionEntry, 0, len(models))
	for i := range models {
		entries = append(entries, *suppressionModelToDomain(&models[i]))
	}

	return entries, nil
}
