package domain

import (
	"context"
	"time"
)

// GoogleIntegration is the stored OAuth grant for one user.
type GoogleIntegration struct {
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
	Scopes       []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Valid reports whether the grant can still produce access tokens at now.
func (g GoogleIntegration) Valid(now time.Time) bool {
	if g.UserID == "" {
		return false
	}
	if g.RefreshToken != "" {
		return true
	}
	return g.AccessToken != "" && !g.Expiry.IsZero() && now.Before(g.Expiry)
}

type IntegrationStore interface {
	IntegrationChecker
	Get(ctx context.Context, userID string) (*GoogleIntegration, error)
	Upsert(ctx context.Context, integration GoogleIntegration) error
	Delete(ctx context.Context, userID string) error
}

// OAuthStateStore binds a one-time OAuth state value to a user.
type OAuthStateStore interface {
	Put(ctx context.Context, state, userID string, ttl time.Duration) error
	// Consume returns the bound user and removes the state. A missing or
	// expired state returns ErrInvalidState.
	Consume(ctx context.Context, state string) (string, error)
}
