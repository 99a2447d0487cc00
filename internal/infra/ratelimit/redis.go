package ratelimit

import (
	"context"
	"errors"
	"time"

	"mentora/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "mentora:ratelimit:"

type redisLimiter struct {
	client redis.UniversalClient
	now    func() time.Time
}

// takeScript increments the window counter and starts its expiry on first use.
var takeScript = redis.NewScript(`
local used = redis.call("INCR", KEYS[1])
if used == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {used, redis.call("PTTL", KEYS[1])}
`)

func NewRedisLimiter(client redis.UniversalClient, now func() time.Time) (domain.QuotaLimiter, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if now == nil {
		now = time.Now
	}
	return &redisLimiter{client: client, now: now}, nil
}

func (r *redisLimiter) Take(ctx context.Context, key string, quota domain.Quota) (domain.QuotaDecision, error) {
	if quota.Unlimited() {
		return domain.QuotaDecision{Allowed: true, Limit: quota.Requests, Remaining: quota.Requests}, nil
	}
	windowMillis := quota.Window.Milliseconds()
	if windowMillis <= 0 {
		windowMillis = 1000
	}
	reply, err := takeScript.Run(ctx, r.client, []string{keyPrefix + key}, windowMillis).Int64Slice()
	if err != nil {
		return domain.QuotaDecision{}, err
	}
	if len(reply) < 2 {
		return domain.QuotaDecision{}, errors.New("unexpected redis rate limit reply")
	}
	used, ttlMillis := reply[0], reply[1]
	resetAt := r.now()
	if ttlMillis > 0 {
		resetAt = resetAt.Add(time.Duration(ttlMillis) * time.Millisecond)
	}
	remaining := int64(quota.Requests) - used
	if remaining < 0 {
		remaining = 0
	}
	return domain.QuotaDecision{
		Allowed:   used <= int64(quota.Requests),
		Limit:     quota.Requests,
		Remaining: int(remaining),
		ResetAt:   resetAt,
	}, nil
}
