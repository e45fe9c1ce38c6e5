package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lealta/campaign-engine/internal/domain"
)

type AccountRepository interface {
	Create(ctx context.Context, a *domain.SendingAccount) error
	Update(ctx context.Context, a *domain.SendingAccount) error
	Delete(ctx context.Context, tenantID, id string) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.SendingAccount, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.SendingAccount, error)
	ReserveQuota(ctx context.Context, id string, quotaDate string) error
	ReleaseQuota(ctx context.Context, id string, quotaDate string) error
	ResetStaleQuotas(ctx context.Context, tenantID string, quotaDate string) error
}

type GormAccountRepo struct {
	db *gorm.DB
}

func NewGormAccountRepo(db *gorm.DB) *GormAccountRepo {
	return &GormAccountRepo{db: db}
}

// Create inserts the account, clearing sibling primary/default flags in the
// same transaction so each tenant keeps at most one of each.
func (r *GormAccountRepo) Create(ctx context.Context, a *domain.SendingAccount) error {
	model := accountModelFromDomain(a)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearSiblingFlags(tx, model.TenantID, model.ID, model.IsPrimary, model.IsDefault); err != nil {
			return err
		}
		return tx.Create(model).Error
	})
	if err != nil {
		return err
	}
	if a != nil {
		*a = *accountModelToDomain(model)
	}
	return nil
}

func (r *GormAccountRepo) Update(ctx context.Context, a *domain.SendingAccount) error {
	model := accountModelFromDomain(a)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearSiblingFlags(tx, model.TenantID, model.ID, model.IsPrimary, model.IsDefault); err != nil {
			return err
		}
		result := tx.Model(&SendingAccountModel{}).
			Where("id = ? AND tenant_id = ?", model.ID, model.TenantID).
			Updates(map[string]any{
				"name":               model.Name,
				"phone_number":       model.PhoneNumber,
				"max_daily_messages": model.MaxDailyMessages,
				"is_primary":         model.IsPrimary,
				"is_default":         model.IsDefault,
				"status":             model.Status,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *GormAccountRepo) Delete(ctx context.Context, tenantID, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&SendingAccountModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormAccountRepo) GetByID(ctx context.Context, tenantID, id string) (*domain.SendingAccount, error) {
	var model SendingAccountModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return accountModelToDomain(&model), nil
}

func (r *GormAccountRepo) ListByTenant(ctx context.Context, tenantID string) ([]domain.SendingAccount, error) {
	var models []SendingAccountModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.SendingAccount, 0, len(models))
	for i := range models {
		accounts = append(accounts, *accountModelToDomain(&models[i]))
	}

	return accounts, nil
}

// ReserveQuota atomically claims one unit of today's quota. The conditional
// update keeps messages_sent_today below the daily maximum even when several
// dispatcher loops route to the same account concurrently.
func (r *GormAccountRepo) ReserveQuota(ctx context.Context, id string, quotaDate string) error {
	result := r.db.WithContext(ctx).
		Model(&SendingAccountModel{}).
		Where("id = ? AND status = ? AND quota_date = ? AND messages_sent_today < max_daily_messages",
			id, domain.AccountActive, quotaDate).
		Update("messages_sent_today", gorm.Expr("messages_sent_today + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrExhausted
	}
	return nil
}

// ReleaseQuota returns one reserved unit after a send that never reached the
// provider, e.g. a synchronous rejection.
func (r *GormAccountRepo) ReleaseQuota(ctx context.Context, id string, quotaDate string) error {
	return r.db.WithContext(ctx).
		Model(&SendingAccountModel{}).
		Where("id = ? AND quota_date = ? AND messages_sent_today > 0", id, quotaDate).
		Update("messages_sent_today", gorm.Expr("messages_sent_today - 1")).Error
}

// ResetStaleQuotas zeroes counters whose quota_date is not the current day.
func (r *GormAccountRepo) ResetStaleQuotas(ctx context.Context, tenantID string, quotaDate string) error {
	return r.db.WithContext(ctx).
		Model(&SendingAccountModel{}).
		Where("tenant_id = ? AND quota_date <> ?", tenantID, quotaDate).
		Updates(map[string]any{
			"messages_sent_today": 0,
			"quota_date":          quotaDate,
		}).Error
}

func clearSiblingFlags(tx *gorm.DB, tenantID, exceptID string, isPrimary, isDefault bool) error {
	if isPrimary {
		err := tx.Model(&SendingAccountModel{}).
			Where("tenant_id = ? AND id <> ? AND is_primary", tenantID, exceptID).
			Update("is_primary", false).Error
		if err != nil {
			return err
		}
	}
	if isDefault {
		err := tx.Model(&SendingAccountModel{}).
			Where("tenant_id = ? AND id <> ? AND is_default", tenantID, exceptID).
			Update("is_default", false).Error
		if err != nil {
			return err
		}
	}
	return nil
}
