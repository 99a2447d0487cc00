package domain

import (
	"context"
	"fmt"
	"time"
)

// Quota is a fixed-window budget: Requests per Window.
type Quota struct {
	Requests int
	Window   time.Duration
}

func (q Quota) Unlimited() bool {
	return q.Requests <= 0
}

type QuotaDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole number of seconds until the window resets.
func (d QuotaDecision) RetryAfter(now time.Time) int64 {
	secs := int64(d.ResetAt.Sub(now).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}

type QuotaLimiter interface {
	Take(ctx context.Context, key string, quota Quota) (QuotaDecision, error)
}

// QuotaKey scopes a budget to one user on one route.
func QuotaKey(userID, route string) string {
	return fmt.Sprintf("user:%s:route:%s", userID, route)
}
