// Package memstore keeps Google integrations in process memory. It backs the
// service when no database is configured and doubles as a test store.
package memstore

import (
	"context"
	"sync"
	"time"

	"mentora/internal/domain"
)

type IntegrationStore struct {
	mu   sync.RWMutex
	now  func() time.Time
	data map[string]domain.GoogleIntegration
}

func NewIntegrationStore(now func() time.Time) *IntegrationStore {
	if now == nil {
		now = time.Now
	}
	return &IntegrationStore{now: now, data: make(map[string]domain.GoogleIntegration)}
}

func (s *IntegrationStore) HasValidIntegration(_ context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	grant, ok := s.data[userID]
	if !ok {
		return false, nil
	}
	return grant.Valid(s.now()), nil
}

func (s *IntegrationStore) Get(_ context.Context, userID string) (*domain.GoogleIntegration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	grant, ok := s.data[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	grant.Scopes = append([]string(nil), grant.Scopes...)
	return &grant, nil
}

func (s *IntegrationStore) Upsert(_ context.Context, integration domain.GoogleIntegration) error {
	if integration.UserID == "" {
		return domain.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if existing, ok := s.data[integration.UserID]; ok && integration.CreatedAt.IsZero() {
		integration.CreatedAt = existing.CreatedAt
	}
	if integration.CreatedAt.IsZero() {
		integration.CreatedAt = now
	}
	if integration.UpdatedAt.IsZero() {
		integration.UpdatedAt = now
	}
	integration.Scopes = append([]string(nil), integration.Scopes...)
	s.data[integration.UserID] = integration
	return nil
}

func (s *IntegrationStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[userID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.data, userID)
	return nil
}
