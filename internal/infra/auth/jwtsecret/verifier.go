// Package jwtsecret validates HS256 tokens signed with the project's shared
// JWT secret without a network round trip.
package jwtsecret

import (
	"context"
	"errors"
	"strings"
	"time"

	"mentora/internal/config"
	"mentora/internal/domain"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

const defaultLeeway = 30 * time.Second

type Verifier struct {
	secret   []byte
	audience string
	leeway   time.Duration
	now      func() time.Time
}

func NewVerifier(cfg config.Config) (*Verifier, error) {
	if cfg.SupabaseJWTSecret == "" {
		return nil, errors.New("SUPABASE_JWT_SECRET is required")
	}
	return &Verifier{
		secret:   []byte(cfg.SupabaseJWTSecret),
		audience: strings.TrimSpace(cfg.JWTAudience),
		leeway:   defaultLeeway,
		now:      time.Now,
	}, nil
}

type supabaseClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (v *Verifier) Verify(_ context.Context, bearerToken string) (domain.Principal, error) {
	tok, err := jwt.ParseSigned(strings.TrimSpace(bearerToken), []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	var registered jwt.Claims
	var extra supabaseClaims
	var raw map[string]any
	if err := tok.Claims(v.secret, &registered, &extra, &raw); err != nil {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	if registered.Expiry == nil {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	expected := jwt.Expected{Time: v.now()}
	if v.audience != "" {
		expected.AnyAudience = jwt.Audience{v.audience}
	}
	if err := registered.ValidateWithLeeway(expected, v.leeway); err != nil {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	return domain.Principal{
		Subject:   registered.Subject,
		Email:     extra.Email,
		Role:      extra.Role,
		RawClaims: raw,
	}, nil
}
