package domain

import (
	"strings"

	"github.com/google/uuid"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderLegacyUserID  = "X-User-Id"

	bearerPrefix = "bearer "
)

// Credential is what a caller presented. Exactly one of BearerToken,
// LegacyUserID or NoCredential.
type Credential interface {
	credential()
}

type BearerToken struct {
	Token string
}

// LegacyUserID is the development-only identity header. It can only be
// produced by an extractor built with legacy headers enabled.
type LegacyUserID struct {
	Value string
}

type NoCredential struct{}

func (BearerToken) credential()  {}
func (LegacyUserID) credential() {}
func (NoCredential) credential() {}

// CredentialExtractor picks the credential a request presents. The legacy
// header path exists only when AllowLegacyHeader is set, which is never the
// case in production.
type CredentialExtractor struct {
	allowLegacyHeader bool
}

func NewCredentialExtractor(production bool) CredentialExtractor {
	return CredentialExtractor{allowLegacyHeader: !production}
}

func (e CredentialExtractor) LegacyHeaderEnabled() bool {
	return e.allowLegacyHeader
}

// Extract applies the precedence bearer token, then legacy header, then none.
func (e CredentialExtractor) Extract(authorization, legacyUserID string) Credential {
	if token, ok := bearerToken(authorization); ok {
		return BearerToken{Token: token}
	}
	if e.allowLegacyHeader {
		if value := strings.TrimSpace(legacyUserID); value != "" {
			return LegacyUserID{Value: value}
		}
	}
	return NoCredential{}
}

// bearerToken reports a token only when the scheme carries one. A bare
// "Bearer" counts as no bearer credential so the legacy header still applies.
func bearerToken(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(strings.ToLower(value), bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(value[len(bearerPrefix):])
	return token, token != ""
}

// IsUUID reports whether value is a canonical 8-4-4-4-12 hexadecimal UUID.
// Braced, URN and undashed forms are rejected.
func IsUUID(value string) bool {
	if len(value) != 36 {
		return false
	}
	_, err := uuid.Parse(value)
	return err == nil
}
