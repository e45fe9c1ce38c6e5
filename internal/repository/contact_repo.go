package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/lealta/campaign-engine/internal/domain"
)

type ContactRepository interface {
	Window(ctx context.Context, tenantID string, filters domain.RecipientFilters, offset, limit int) ([]domain.Contact, error)
	CountMatching(ctx context.Context, tenantID string, filters domain.RecipientFilters) (int64, error)
}

type GormContactRepo struct {
	db *gorm.DB
}

func NewGormContactRepo(db *gorm.DB) *GormContactRepo {
	return &GormContactRepo{db: db}
}

// Window returns one cursor window of the recipient population. Ordering by
// (registered_at, id) is what makes cursor offsets stable across batches and
// restarts.
func (r *GormContactRepo) Window(ctx context.Context, tenantID string, filters domain.RecipientFilters, offset, limit int) ([]domain.Contact, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		return nil, nil
	}

	var models []ContactModel
	err := applyFilters(r.db.WithContext(ctx).Where("tenant_id = ?", tenantID), filters).
		Order("registered_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	contacts := make([]domain.Contact, 0, len(models))
	for i := range models {
		contacts = append(contacts, *contactModelToDomain(&models[i]))
	}

	return contacts, nil
}

func (r *GormContactRepo) CountMatching(ctx context.Context, tenantID string, filters domain.RecipientFilters) (int64, error) {
	var count int64
	err := applyFilters(r.db.WithContext(ctx).Model(&ContactModel{}).Where("tenant_id = ?", tenantID), filters).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func applyFilters(query *gorm.DB, filters domain.RecipientFilters) *gorm.DB {
	if filters.MinPoints != nil {
		query = query.Where("points >= ?", *filters.MinPoints)
	}
	if filters.MaxPoints != nil {
		query = query.Where("points <= ?", *filters.MaxPoints)
	}
	return query
}
