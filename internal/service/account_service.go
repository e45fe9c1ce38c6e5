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

// AccountInput carries the writable fields of a sending account.
type AccountInput struct {
	Name             string
	PhoneNumber      string
	MaxDailyMessages int
	IsPrimary        bool
	IsDefault        bool
	Enabled          bool
}

// AccountService manages the sending account pool. The repository keeps the
// at-most-one-primary and at-most-one-default invariants transactionally.
type AccountService struct {
	accounts repository.AccountRepository
	quotaLoc *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

func NewAccountService(accounts repository.AccountRepository, quotaLoc *time.Location, logger *zap.Logger) (*AccountService, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account repository is required")
	}
	if quotaLoc == nil {
		quotaLoc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AccountService{
		accounts: accounts,
		quotaLoc: quotaLoc,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (s *AccountService) Create(ctx context.Context, tenantID string, input AccountInput) (*domain.SendingAccount, error) {
	account := &domain.SendingAccount{
		ID:               uuid.NewString(),
		TenantID:         tenantID,
		Name:             input.Name,
		PhoneNumber:      domain.NormalizePhone(input.PhoneNumber),
		MaxDailyMessages: input.MaxDailyMessages,
		QuotaDate:        s.now().In(s.quotaLoc).Format(quotaDateLayout),
		IsPrimary:        input.IsPrimary,
		IsDefault:        input.IsDefault,
		Status:           statusFromEnabled(input.Enabled),
		CreatedAt:        s.now().UTC(),
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create sending account: %w", err)
	}

	return account, nil
}

func (s *AccountService) Update(ctx context.Context, tenantID, accountID string, input AccountInput) (*domain.SendingAccount, error) {
	account, err := s.accounts.GetByID(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}

	account.Name = input.Name
	account.PhoneNumber = domain.NormalizePhone(input.PhoneNumber)
	account.MaxDailyMessages = input.MaxDailyMessages
	account.IsPrimary = input.IsPrimary
	account.IsDefault = input.IsDefault
	account.Status = statusFromEnabled(input.Enabled)

	if err := account.Validate(); err != nil {
		return nil, err
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update sending account: %w", err)
	}

	return s.accounts.GetByID(ctx, tenantID, accountID)
}

// Delete removes an account. The primary account must be demoted first so a
// tenant never silently loses its preferred route.
func (s *AccountService) Delete(ctx context.Context, tenantID, accountID string) error {
	account, err := s.accounts.GetByID(ctx, tenantID, accountID)
	if err != nil {
		return err
	}
	if account.IsPrimary {
		return fmt.Errorf("%w: cannot delete the primary sending account", domain.ErrConflict)
	}

	return s.accounts.Delete(ctx, tenantID, accountID)
}

func (s *AccountService) List(ctx context.Context, tenantID string) ([]domain.SendingAccount, error) {
	return s.accounts.ListByTenant(ctx, tenantID)
}

func statusFromEnabled(enabled bool) domain.AccountStatus {
	if enabled {
		return domain.AccountActive
	}
	return domain.AccountDisabled
}
