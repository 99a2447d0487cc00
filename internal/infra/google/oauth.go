// Package google talks to Google OAuth, Calendar and Tasks on behalf of a
// connected user.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mentora/internal/config"
	"mentora/internal/domain"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var Scopes = []string{
	oauth2api.UserinfoEmailScope,
	"https://www.googleapis.com/auth/calendar.events",
	"https://www.googleapis.com/auth/tasks",
}

type OAuth struct {
	config  *oauth2.Config
	options []option.ClientOption
}

// NewOAuth builds the authorization-code client. opts are passed to the
// userinfo service and let tests point it at a fake endpoint.
func NewOAuth(cfg config.Config, opts ...option.ClientOption) (*OAuth, error) {
	if !cfg.GoogleEnabled() {
		return nil, errors.New("GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL are required")
	}
	return &OAuth{
		config: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       Scopes,
			Endpoint:     googleoauth.Endpoint,
		},
		options: opts,
	}, nil
}

// AuthCodeURL asks for offline access and forces the consent screen so Google
// always returns a refresh token.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (o *OAuth) Exchange(ctx context.Context, code string) (domain.GoogleIntegration, error) {
	tok, err := o.config.Exchange(ctx, code)
	if err != nil {
		return domain.GoogleIntegration{}, fmt.Errorf("exchange code: %w", err)
	}
	grant := grantFromToken(tok)

	opts := append([]option.ClientOption{option.WithTokenSource(o.config.TokenSource(ctx, tok))}, o.options...)
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return domain.GoogleIntegration{}, fmt.Errorf("userinfo service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return domain.GoogleIntegration{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	grant.Email = info.Email
	return grant, nil
}

func (o *OAuth) tokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return o.config.TokenSource(ctx, tok)
}

func grantFromToken(tok *oauth2.Token) domain.GoogleIntegration {
	grant := domain.GoogleIntegration{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		grant.Scopes = strings.Fields(scope)
	}
	return grant
}

func tokenFromGrant(grant domain.GoogleIntegration) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		TokenType:    grant.TokenType,
		Expiry:       grant.Expiry,
	}
}
