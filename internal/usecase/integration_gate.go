package usecase

import (
	"context"
	"log/slog"

	"mentora/internal/domain"
	"mentora/internal/logger"
)

// IntegrationGate requires a resolved principal with a connected Google
// account. Every call performs one lookup; nothing is cached.
type IntegrationGate struct {
	checker domain.IntegrationChecker
	logger  *slog.Logger
}

func NewIntegrationGate(checker domain.IntegrationChecker, log *slog.Logger) *IntegrationGate {
	return &IntegrationGate{checker: checker, logger: logger.OrDefault(log)}
}

// Require fails closed: a lookup error is treated like a missing integration.
func (g *IntegrationGate) Require(ctx context.Context, principal *domain.Principal) error {
	if principal == nil || principal.Subject == "" {
		return &domain.AuthError{Code: CodeAuthRequired, Err: domain.ErrAuthenticationRequired}
	}
	notConnected := &domain.AuthError{Code: CodeIntegrationMissing, Err: domain.ErrIntegrationNotConnected}
	if g.checker == nil {
		g.logger.Error("integration checker not configured")
		return notConnected
	}
	ok, err := g.checker.HasValidIntegration(ctx, principal.Subject)
	if err != nil {
		g.logger.Error("integration lookup failed", "user_id", principal.Subject, "err", err)
		return notConnected
	}
	if !ok {
		return notConnected
	}
	return nil
}
