package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lealta/campaign-engine/internal/ratelimit"
)

const (
	defaultRatePerSec int64 = 10
	backoffStep             = 10 * time.Millisecond
	backoffMax              = 50 * time.Millisecond
	windowSeconds           = 1
)

var paceScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var _ ratelimit.RateLimiter = (*SendPacer)(nil)

// SendPacer is a distributed per-tenant per-second send limiter backed by
// Redis. Every dispatcher loop consults it before each provider call, so the
// pace holds across workers.
type SendPacer struct {
	client     *goredis.Client
	ratePerSec int64
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
	script     *goredis.Script
}

func NewSendPacer(client *goredis.Client, ratePerSec int) (*SendPacer, error) {
	return newSendPacer(
		client,
		int64(ratePerSec),
		time.Now,
		sleepWithContext,
	)
}

func newSendPacer(
	client *goredis.Client,
	ratePerSec int64,
	nowFn func() time.Time,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*SendPacer, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ratePerSec <= 0 {
		ratePerSec = defaultRatePerSec
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &SendPacer{
		client:     client,
		ratePerSec: ratePerSec,
		now:        nowFn,
		sleep:      sleepFn,
		script:     paceScript,
	}, nil
}

func (p *SendPacer) Allow(ctx context.Context, tenantID string) (bool, error) {
	if p == nil || p.client == nil || p.script == nil {
		return false, fmt.Errorf("send pacer is not initialized")
	}

	normalizedTenant := strings.ToLower(strings.TrimSpace(tenantID))
	if normalizedTenant == "" {
		return false, fmt.Errorf("tenant id is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key := fmt.Sprintf("sendpace:%s:%d", normalizedTenant, p.now().UTC().Unix())
	result, err := p.script.Run(ctx, p.client, []string{key}, p.ratePerSec, windowSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate send pace: %w", err)
	}

	return result == 1, nil
}

func (p *SendPacer) Wait(ctx context.Context, tenantID string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	backoff := backoffStep
	for {
		allowed, err := p.Allow(ctx, tenantID)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		if err := p.sleep(ctx, backoff); err != nil {
			return err
		}

		backoff += backoffStep
		if backoff > backoffMax {
			backoff = backoffMax
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
