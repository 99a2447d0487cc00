// Package supabase verifies access tokens by asking Supabase Auth who they
// belong to.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mentora/internal/config"
	"mentora/internal/domain"
)

const (
	userPath           = "/auth/v1/user"
	defaultHTTPTimeout = 5 * time.Second
	maxBodyBytes       = 1 << 20
)

type Verifier struct {
	baseURL string
	anonKey string
	client  *http.Client
}

type Option func(*Verifier)

func WithHTTPClient(client *http.Client) Option {
	return func(v *Verifier) {
		if client != nil {
			v.client = client
		}
	}
}

func NewVerifier(cfg config.Config, opts ...Option) (*Verifier, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.SupabaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("SUPABASE_URL is required")
	}
	if cfg.SupabaseAnonKey == "" {
		return nil, errors.New("SUPABASE_ANON_KEY is required")
	}
	v := &Verifier{
		baseURL: baseURL,
		anonKey: cfg.SupabaseAnonKey,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

type userResponse struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	Aud          string         `json:"aud"`
	AppMetadata  map[string]any `json:"app_metadata"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (v *Verifier) Verify(ctx context.Context, bearerToken string) (domain.Principal, error) {
	token := strings.TrimSpace(bearerToken)
	if token == "" {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+userPath, nil)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("build supabase request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", v.anonKey)
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: supabase auth: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.Principal{}, domain.ErrInvalidToken
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return domain.Principal{}, fmt.Errorf("%w: supabase auth returned %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var user userResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&user); err != nil {
		return domain.Principal{}, fmt.Errorf("%w: decode supabase user: %v", domain.ErrUpstreamUnavailable, err)
	}
	if user.ID == "" {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	return domain.Principal{
		Subject: user.ID,
		Email:   user.Email,
		Role:    user.Role,
		RawClaims: map[string]any{
			"aud":           user.Aud,
			"app_metadata":  user.AppMetadata,
			"user_metadata": user.UserMetadata,
		},
	}, nil
}
