package domain

import (
	"fmt"
	"strings"
	"time"
)

// AccountStatus represents whether a sending account may be routed to.
type AccountStatus string

const (
	AccountActive   AccountStatus = "ACTIVE"
	AccountDisabled AccountStatus = "DISABLED"
)

func (s AccountStatus) String() string { return string(s) }

func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountActive, AccountDisabled:
		return true
	}
	return false
}

// SendingAccount is one outbound identity with a daily message quota.
// At most one account per tenant is primary and at most one is default;
// the router prefers primary, then default, then the least-consumed
// enabled account.
type SendingAccount struct {
	ID                string
	TenantID          string
	Name              string
	PhoneNumber       string
	MaxDailyMessages  int
	MessagesSentToday int
	// QuotaDate is the day (in the configured reset timezone, YYYY-MM-DD)
	// that MessagesSentToday counts against. A stale date means the counter
	// must be reset before routing.
	QuotaDate string
	IsPrimary bool
	IsDefault bool
	Status    AccountStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *SendingAccount) Validate() error {
	if strings.TrimSpace(a.TenantID) == "" {
		return fmt.Errorf("%w: tenantId is required", ErrValidation)
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: account name is required", ErrValidation)
	}
	if strings.TrimSpace(a.PhoneNumber) == "" {
		return fmt.Errorf("%w: phoneNumber is required", ErrValidation)
	}
	if a.MaxDailyMessages <= 0 {
		return fmt.Errorf("%w: maxDailyMessages must be greater than 0", ErrValidation)
	}
	if !a.Status.IsValid() {
		return fmt.Errorf("%w: invalid account status %q", ErrValidation, a.Status)
	}
	return nil
}

// RemainingQuota is the number of messages the account may still send today.
func (a *SendingAccount) RemainingQuota() int {
	remaining := a.MaxDailyMessages - a.MessagesSentToday
	if remaining < 0 {
		return 0
	}
	return remaining
}

// QuotaRatio is the fraction of the daily quota already consumed, used to
// load-balance across accounts instead of draining one before the next.
func (a *SendingAccount) QuotaRatio() float64 {
	if a.MaxDailyMessages <= 0 {
		return 1
	}
	return float64(a.MessagesSentToday) / float64(a.MaxDailyMessages)
}

// Routable reports whether the account may receive traffic right now.
func (a *SendingAccount) Routable() bool {
	return a.Status == AccountActive && a.RemainingQuota() > 0
}

// NormalizePhone strips formatting and returns an E.164-ish number. Digits
// only input gets a leading plus.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	return "+" + digits
}
