package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/lealta/campaign-engine/internal/domain"
	"github.com/lealta/campaign-engine/internal/repository"
)

const quotaDateLayout = "2006-01-02"

// AccountRouter picks the sending account for each outbound message:
// primary first, then default, then the least-consumed active account.
// Selection reserves one unit of quota atomically, so concurrent loops can
// never oversell a daily maximum; a send that fails before reaching the
// provider must release the unit.
type AccountRouter struct {
	accounts repository.AccountRepository
	quotaLoc *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

func NewAccountRouter(accounts repository.AccountRepository, quotaLoc *time.Location, logger *zap.Logger) *AccountRouter {
	if quotaLoc == nil {
		quotaLoc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AccountRouter{
		accounts: accounts,
		quotaLoc: quotaLoc,
		logger:   logger,
		now:      time.Now,
	}
}

// Route reserves quota on the best available account for the tenant.
// Returns ErrExhausted when every account is disabled or out of quota.
func (r *AccountRouter) Route(ctx context.Context, tenantID string) (*domain.SendingAccount, error) {
	quotaDate := r.quotaDate()

	if err := r.accounts.ResetStaleQuotas(ctx, tenantID, quotaDate); err != nil {
		return nil, fmt.Errorf("failed to reset stale quotas: %w", err)
	}

	accounts, err := r.accounts.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sending accounts: %w", err)
	}

	for _, candidate := range rankAccounts(accounts) {
		err := r.accounts.ReserveQuota(ctx, candidate.ID, quotaDate)
		if errors.Is(err, domain.ErrExhausted) {
			// Lost a race for the last unit; fall through to the next account.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to reserve quota: %w", err)
		}

		account := candidate
		account.MessagesSentToday++
		account.QuotaDate = quotaDate
		return &account, nil
	}

	return nil, fmt.Errorf("%w: tenant %s", domain.ErrExhausted, tenantID)
}

// Release returns one reserved unit after a send that never counted, e.g. a
// synchronous provider rejection.
func (r *AccountRouter) Release(ctx context.Context, accountID string) {
	if err := r.accounts.ReleaseQuota(ctx, accountID, r.quotaDate()); err != nil {
		r.logger.Warn("failed to release reserved quota",
			zap.String("accountId", accountID),
			zap.Error(err),
		)
	}
}

func (r *AccountRouter) quotaDate() string {
	return r.now().In(r.quotaLoc).Format(quotaDateLayout)
}

// rankAccounts orders routable accounts by preference: primary, default,
// then ascending quota consumption so traffic spreads instead of draining
// one account at a time.
func rankAccounts(accounts []domain.SendingAccount) []domain.SendingAccount {
	ranked := make([]domain.SendingAccount, 0, len(accounts))
	for _, a := range accounts {
		if a.Routable() {
			ranked = append(ranked, a)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].IsPrimary != ranked[j].IsPrimary {
			return ranked[i].IsPrimary
		}
		if ranked[i].IsDefault != ranked[j].IsDefault {
			return ranked[i].IsDefault
		}
		return ranked[i].QuotaRatio() < ranked[j].QuotaRatio()
	})

	return ranked
}
