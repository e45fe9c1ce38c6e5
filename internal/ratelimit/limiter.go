package ratelimit

import "context"

// RateLimiter paces outbound sends per tenant so one tenant's campaigns
// cannot flood the provider.
type RateLimiter interface {
	Allow(ctx context.Context, tenantID string) (bool, error)
	Wait(ctx context.Context, tenantID string) error
}
