package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mentora/internal/domain"
	"mentora/internal/logger"

	"github.com/google/uuid"
)

const DefaultOAuthStateTTL = 10 * time.Minute

type GoogleConnect struct {
	OAuth    OAuthProvider
	States   domain.OAuthStateStore
	Store    domain.IntegrationStore
	StateTTL time.Duration
	Now      func() time.Time
	Logger   *slog.Logger
}

type IntegrationStatus struct {
	Connected bool       `json:"connected"`
	Email     string     `json:"email,omitempty"`
	Expiry    *time.Time `json:"expiry,omitempty"`
	Scopes    []string   `json:"scopes,omitempty"`
}

// AuthURL issues a single-use state bound to the caller and returns the
// consent URL carrying it.
func (g *GoogleConnect) AuthURL(ctx context.Context, principal domain.Principal) (string, error) {
	if principal.Subject == "" {
		return "", domain.ErrAuthenticationRequired
	}
	if g.OAuth == nil || g.States == nil {
		return "", fmt.Errorf("google oauth not configured: %w", domain.ErrUpstreamUnavailable)
	}
	state := uuid.NewString()
	if err := g.States.Put(ctx, state, principal.Subject, g.stateTTL()); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return g.OAuth.AuthCodeURL(state), nil
}

// Complete consumes state, exchanges code and stores the grant. It returns the
// user the state was issued to.
func (g *GoogleConnect) Complete(ctx context.Context, state, code string) (string, error) {
	state = strings.TrimSpace(state)
	code = strings.TrimSpace(code)
	if state == "" {
		return "", domain.ErrInvalidState
	}
	if code == "" {
		return "", fmt.Errorf("code is required: %w", domain.ErrInvalidArgument)
	}
	if g.OAuth == nil || g.States == nil || g.Store == nil {
		return "", fmt.Errorf("google oauth not configured: %w", domain.ErrUpstreamUnavailable)
	}
	userID, err := g.States.Consume(ctx, state)
	if err != nil {
		return "", err
	}
	grant, err := g.OAuth.Exchange(ctx, code)
	if err != nil {
		logger.OrDefault(g.Logger).Error("google code exchange failed", "user_id", userID, "err", err)
		return "", fmt.Errorf("exchange code: %w", domain.ErrUpstreamUnavailable)
	}
	now := g.now()
	grant.UserID = userID
	grant.UpdatedAt = now
	if existing, err := g.Store.Get(ctx, userID); err == nil && existing != nil {
		grant.CreatedAt = existing.CreatedAt
		if grant.RefreshToken == "" {
			grant.RefreshToken = existing.RefreshToken
		}
	} else {
		grant.CreatedAt = now
	}
	if err := g.Store.Upsert(ctx, grant); err != nil {
		return "", fmt.Errorf("store integration: %w", err)
	}
	logger.OrDefault(g.Logger).Info("google account connected", "user_id", userID)
	return userID, nil
}

func (g *GoogleConnect) Status(ctx context.Context, principal domain.Principal) (IntegrationStatus, error) {
	if principal.Subject == "" {
		return IntegrationStatus{}, domain.ErrAuthenticationRequired
	}
	if g.Store == nil {
		return IntegrationStatus{}, nil
	}
	grant, err := g.Store.Get(ctx, principal.Subject)
	if errors.Is(err, domain.ErrNotFound) {
		return IntegrationStatus{}, nil
	}
	if err != nil {
		return IntegrationStatus{}, err
	}
	status := IntegrationStatus{
		Connected: grant.Valid(g.now()),
		Email:     grant.Email,
		Scopes:    grant.Scopes,
	}
	if !grant.Expiry.IsZero() {
		expiry := grant.Expiry.UTC()
		status.Expiry = &expiry
	}
	return status, nil
}

// Disconnect removes the stored grant. Disconnecting twice is not an error.
func (g *GoogleConnect) Disconnect(ctx context.Context, principal domain.Principal) error {
	if principal.Subject == "" {
		return domain.ErrAuthenticationRequired
	}
	if g.Store == nil {
		return nil
	}
	if err := g.Store.Delete(ctx, principal.Subject); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	logger.OrDefault(g.Logger).Info("google account disconnected", "user_id", principal.Subject)
	return nil
}

func (g *GoogleConnect) stateTTL() time.Duration {
	if g.StateTTL <= 0 {
		return DefaultOAuthStateTTL
	}
	return g.StateTTL
}

func (g *GoogleConnect) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}
