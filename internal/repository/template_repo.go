package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lealta/campaign-engine/internal/domain"
)

type TemplateRepository interface {
	GetByRef(ctx context.Context, tenantID, ref string) (*domain.ApprovedTemplate, error)
}

type GormTemplateRepo struct {
	db *gorm.DB
}

func NewGormTemplateRepo(db *gorm.DB) *GormTemplateRepo {
	return &GormTemplateRepo{db: db}
}

func (r *GormTemplateRepo) GetByRef(ctx context.Context, tenantID, ref string) (*domain.ApprovedTemplate, error) {
	var model ApprovedTemplateModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND ref = ?", tenantID, ref).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return templateModelToDomain(&model), nil
}
