// Package oidc verifies RS256 access tokens issued by an OpenID Connect
// provider against its published key set.
package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mentora/internal/config"
	"mentora/internal/domain"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

const (
	defaultHTTPTimeout = 5 * time.Second
	discoveryPath      = "/.well-known/openid-configuration"
)

type Verifier struct {
	issuer    string
	audience  string
	clockSkew time.Duration
	client    *http.Client
	now       func() time.Time
	keys      *keySet
}

type Option func(*Verifier)

func WithHTTPClient(client *http.Client) Option {
	return func(v *Verifier) {
		if client != nil {
			v.client = client
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier builds a verifier for cfg.OIDCIssuerURL. When no JWKS URL is
// configured it is discovered from the issuer metadata.
func NewVerifier(ctx context.Context, cfg config.Config, opts ...Option) (*Verifier, error) {
	issuer := strings.TrimSpace(cfg.OIDCIssuerURL)
	if issuer == "" {
		return nil, errors.New("OIDC_ISSUER_URL is required")
	}
	v := &Verifier{
		issuer:    issuer,
		audience:  strings.TrimSpace(cfg.OIDCAudience),
		clockSkew: time.Duration(cfg.OIDCClockSkewSecs) * time.Second,
		client:    &http.Client{Timeout: defaultHTTPTimeout},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	jwksURL := strings.TrimSpace(cfg.OIDCJWKSURL)
	if jwksURL == "" {
		discovered, err := discoverJWKSURL(ctx, v.client, issuer)
		if err != nil {
			return nil, fmt.Errorf("oidc discovery: %w", err)
		}
		jwksURL = discovered
	}
	v.keys = newKeySet(jwksURL, v.client, v.now)
	return v, nil
}

func (v *Verifier) Verify(ctx context.Context, bearerToken string) (domain.Principal, error) {
	if v == nil {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	raw := strings.TrimSpace(bearerToken)
	if raw == "" {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.RS256})
	if err != nil || len(tok.Headers) == 0 {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	header := tok.Headers[0]
	if typ, ok := header.ExtraHeaders[jose.HeaderType].(string); ok && typ != "" && !strings.EqualFold(typ, "JWT") {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	key, err := v.keys.get(ctx, header.KeyID)
	if errors.Is(err, errUnknownKey) {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	var registered jwt.Claims
	var claims map[string]any
	if err := tok.Claims(key, &registered, &claims); err != nil {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	if err := v.validate(registered); err != nil {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	return principalFromClaims(registered.Subject, claims), nil
}

func (v *Verifier) validate(claims jwt.Claims) error {
	if claims.Expiry == nil {
		return errors.New("exp claim required")
	}
	expected := jwt.Expected{Issuer: v.issuer, Time: v.now()}
	if v.audience != "" {
		expected.AnyAudience = jwt.Audience{v.audience}
	}
	return claims.ValidateWithLeeway(expected, v.clockSkew)
}

func discoverJWKSURL(ctx context.Context, client *http.Client, issuer string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(issuer, "/")+discoveryPath, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("discovery returned %d", resp.StatusCode)
	}
	var payload struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.JWKSURI == "" {
		return "", errors.New("discovery document missing jwks_uri")
	}
	return payload.JWKSURI, nil
}

func principalFromClaims(subject string, claims map[string]any) domain.Principal {
	principal := domain.Principal{Subject: subject, RawClaims: claims}
	if email, _ := claims["email"].(string); email != "" {
		principal.Email = email
	}
	if role, _ := claims["role"].(string); role != "" {
		principal.Role = role
	}
	return principal
}
