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
)

const DefaultVerifyTimeout = 5 * time.Second

const (
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeInvalidUserID      = "INVALID_USER_ID"
	CodeAuthRequired       = "AUTHENTICATION_REQUIRED"
	CodeIntegrationMissing = "GOOGLE_NOT_CONNECTED"
)

// IdentityResolver turns a presented credential into a principal.
type IdentityResolver struct {
	verifier domain.TokenVerifier
	timeout  time.Duration
	logger   *slog.Logger
}

type IdentityResolverConfig struct {
	Verifier domain.TokenVerifier
	// VerifyTimeout bounds each call to the identity provider. Zero means
	// DefaultVerifyTimeout.
	VerifyTimeout time.Duration
	Logger        *slog.Logger
}

func NewIdentityResolver(cfg IdentityResolverConfig) *IdentityResolver {
	timeout := cfg.VerifyTimeout
	if timeout <= 0 {
		timeout = DefaultVerifyTimeout
	}
	return &IdentityResolver{
		verifier: cfg.Verifier,
		timeout:  timeout,
		logger:   logger.OrDefault(cfg.Logger),
	}
}

// Resolve returns the principal for cred or an *domain.AuthError. The wrapped
// error is one of domain.ErrInvalidToken, domain.ErrMalformedCredential or
// domain.ErrAuthenticationRequired; provider outages are reported as
// ErrInvalidToken and only the log sees the cause.
func (r *IdentityResolver) Resolve(ctx context.Context, cred domain.Credential) (domain.Principal, error) {
	return r.resolve(ctx, cred, slog.LevelError)
}

// ResolveOptional is Resolve for callers that fall back to an anonymous
// request. Provider failures are logged at debug level only.
func (r *IdentityResolver) ResolveOptional(ctx context.Context, cred domain.Credential) (domain.Principal, error) {
	return r.resolve(ctx, cred, slog.LevelDebug)
}

func (r *IdentityResolver) resolve(ctx context.Context, cred domain.Credential, failLevel slog.Level) (principal domain.Principal, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Log(ctx, failLevel, "identity resolution panicked", "panic", fmt.Sprint(rec))
			principal, err = domain.Principal{}, &domain.AuthError{Code: CodeInvalidToken, Err: domain.ErrInvalidToken}
		}
	}()

	switch c := cred.(type) {
	case domain.BearerToken:
		return r.resolveBearer(ctx, c.Token, failLevel)
	case domain.LegacyUserID:
		if !domain.IsUUID(c.Value) {
			return domain.Principal{}, &domain.AuthError{Code: CodeInvalidUserID, Err: domain.ErrMalformedCredential}
		}
		return domain.Principal{Subject: strings.ToLower(c.Value), Tier: domain.TierLegacyHeader}, nil
	case domain.NoCredential, nil:
		return domain.Principal{}, &domain.AuthError{Code: CodeAuthRequired, Err: domain.ErrAuthenticationRequired}
	default:
		return domain.Principal{}, &domain.AuthError{Code: CodeAuthRequired, Err: domain.ErrAuthenticationRequired}
	}
}

func (r *IdentityResolver) resolveBearer(ctx context.Context, token string, failLevel slog.Level) (domain.Principal, error) {
	invalid := &domain.AuthError{Code: CodeInvalidToken, Err: domain.ErrInvalidToken}
	if token == "" {
		return domain.Principal{}, invalid
	}
	if r.verifier == nil {
		r.logger.Log(ctx, failLevel, "token verifier not configured")
		return domain.Principal{}, invalid
	}

	verifyCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	principal, err := r.verifier.Verify(verifyCtx, token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrUnauthorized):
			r.logger.Debug("bearer token rejected", "err", err)
		case errors.Is(err, context.DeadlineExceeded), errors.Is(verifyCtx.Err(), context.DeadlineExceeded):
			r.logger.Log(ctx, failLevel, "token verification timed out", "timeout", r.timeout, "err", err)
		default:
			r.logger.Log(ctx, failLevel, "token verification failed", "err", err)
		}
		return domain.Principal{}, invalid
	}
	if strings.TrimSpace(principal.Subject) == "" {
		r.logger.Warn("token verifier returned no subject")
		return domain.Principal{}, invalid
	}
	principal.Tier = domain.TierVerified
	return principal, nil
}
