package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"mentora/internal/domain"
)

type memoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*fixedWindow
	maxKeys int
}

type fixedWindow struct {
	used int
	ends time.Time
}

type MemoryLimiterConfig struct {
	Now     func() time.Time
	MaxKeys int
}

func NewMemoryLimiter(cfg MemoryLimiterConfig) domain.QuotaLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &memoryLimiter{
		now:     cfg.Now,
		windows: make(map[string]*fixedWindow),
		maxKeys: cfg.MaxKeys,
	}
}

func (m *memoryLimiter) Take(_ context.Context, key string, quota domain.Quota) (domain.QuotaDecision, error) {
	if quota.Unlimited() {
		return domain.QuotaDecision{Allowed: true, Limit: quota.Requests, Remaining: quota.Requests}, nil
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if ok && !now.Before(w.ends) {
		delete(m.windows, key)
		ok = false
	}
	if !ok {
		if len(m.windows) >= m.maxKeys {
			m.evictExpired(now)
		}
		if len(m.windows) >= m.maxKeys {
			return domain.QuotaDecision{}, errors.New("rate limiter capacity exceeded")
		}
		w = &fixedWindow{ends: now.Add(quota.Window)}
		m.windows[key] = w
	}

	decision := domain.QuotaDecision{Limit: quota.Requests, ResetAt: w.ends}
	if w.used < quota.Requests {
		w.used++
		decision.Allowed = true
		decision.Remaining = quota.Requests - w.used
	}
	return decision, nil
}

func (m *memoryLimiter) evictExpired(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.ends) {
			delete(m.windows, key)
		}
	}
}
