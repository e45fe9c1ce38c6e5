package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/lealta/campaign-engine/internal/domain"
)

type CampaignRepository interface {
	Create(ctx context.Context, c *domain.Campaign) error
	GetByID(ctx context.Context, id string) (*domain.Campaign, error)
	ListRecentByTenant(ctx context.Context, tenantID string, limit int) ([]domain.Campaign, error)
	UpdateStatusFrom(ctx context.Context, id string, from, to domain.CampaignStatus) error
	MarkStarted(ctx context.Context, id string, workerName string, at time.Time) error
	MarkCompleted(ctx context.Context, id string, at time.Time) error
	SaveProgress(ctx context.Context, c *domain.Campaign) error
}

type GormCampaignRepo struct {
	db *gorm.DB
}

func NewGormCampaignRepo(db *gorm.DB) *GormCampaignRepo {
	return &GormCampaignRepo{db: db}
}

func (r *GormCampaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	model := campaignModelFromDomain(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if c != nil {
		*c = *campaignModelToDomain(model)
	}
	return nil
}

func (r *GormCampaignRepo) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	var model CampaignModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return campaignModelToDomain(&model), nil
}

func (r *GormCampaignRepo) ListRecentByTenant(ctx context.Context, tenantID string, limit int) ([]domain.Campaign, error) {
	if limit < 1 {
		limit = 50
	}
	limit = min(limit, 100)

	var models []CampaignModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	campaigns := make([]domain.Campaign, 0, len(models))
	for i := range models {
		campaigns = append(campaigns, *campaignModelToDomain(&models[i]))
	}

	return campaigns, nil
}

// UpdateStatusFrom performs a compare-and-set status transition. A row that
// exists but is no longer in the expected status yields ErrConflict. The
// version column is left alone on purpose: a loop mid-batch must still be
// able to commit its progress after a pause or cancel lands.
func (r *GormCampaignRepo) UpdateStatusFrom(ctx context.Context, id string, from, to domain.CampaignStatus) error {
	result := r.db.WithContext(ctx).
		Model(&CampaignModel{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrConflict
	}
	return nil
}

func (r *GormCampaignRepo) MarkStarted(ctx context.Context, id string, workerName string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&CampaignModel{}).
		Where("id = ? AND status = ?", id, domain.CampaignDraft).
		Updates(map[string]any{
			"status":      domain.CampaignProcessing,
			"worker_name": workerName,
			"started_at":  at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrConflict
	}
	return nil
}

func (r *GormCampaignRepo) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&CampaignModel{}).
		Where("id = ? AND status = ?", id, domain.CampaignProcessing).
		Updates(map[string]any{
			"status":       domain.CampaignCompleted,
			"completed_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrConflict
	}
	return nil
}

// SaveProgress commits one batch iteration using optimistic locking on the
// version column. Only SaveProgress bumps the version, so a stale version
// always means another loop committed progress for this campaign; the caller
// must abort instead of retrying.
func (r *GormCampaignRepo) SaveProgress(ctx context.Context, c *domain.Campaign) error {
	if c == nil {
		return domain.ErrValidation
	}

	result := r.db.WithContext(ctx).
		Model(&CampaignModel{}).
		Where("id = ? AND version = ?", c.ID, c.Version).
		Updates(map[string]any{
			"cursor":  c.Cursor,
			"sent":    c.Sent,
			"failed":  c.Failed,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrStaleCampaign
	}

	c.Version++
	return nil
}
