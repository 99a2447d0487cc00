package oauthstate

import (
	"context"
	"errors"
	"sync"
	"time"

	"mentora/internal/domain"
)

type memoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	data    map[string]memoryEntry
	maxKeys int
}

type memoryEntry struct {
	userID    string
	expiresAt time.Time
}

type MemoryStoreConfig struct {
	Now     func() time.Time
	MaxKeys int
}

func NewMemoryStore(cfg MemoryStoreConfig) domain.OAuthStateStore {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &memoryStore{
		now:     cfg.Now,
		data:    make(map[string]memoryEntry),
		maxKeys: cfg.MaxKeys,
	}
}

func (m *memoryStore) Put(_ context.Context, state, userID string, ttl time.Duration) error {
	if state == "" || userID == "" {
		return domain.ErrInvalidArgument
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.data) >= m.maxKeys {
		m.gc(now)
	}
	if len(m.data) >= m.maxKeys {
		return errors.New("oauth state store capacity exceeded")
	}
	m.data[state] = memoryEntry{userID: userID, expiresAt: now.Add(ttl)}
	return nil
}

func (m *memoryStore) Consume(_ context.Context, state string) (string, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.data[state]
	if !ok {
		return "", domain.ErrInvalidState
	}
	delete(m.data, state)
	if !now.Before(entry.expiresAt) {
		return "", domain.ErrInvalidState
	}
	return entry.userID, nil
}

func (m *memoryStore) gc(now time.Time) {
	for key, entry := range m.data {
		if !now.Before(entry.expiresAt) {
			delete(m.data, key)
		}
	}
}
