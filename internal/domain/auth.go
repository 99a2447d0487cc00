package domain

import "context"

// TrustTier records which path produced a principal.
type TrustTier string

const (
	TierUnauthenticated TrustTier = "unauthenticated"
	TierVerified        TrustTier = "verified"
	TierLegacyHeader    TrustTier = "legacy-header"
)

// Principal is the identity attached to a single request. It is never cached
// or shared across requests.
type Principal struct {
	Subject   string
	Email     string
	Role      string
	Tier      TrustTier
	RawClaims map[string]any
}

func (p Principal) Verified() bool {
	return p.Tier == TierVerified
}

// TokenVerifier delegates bearer-token verification to an identity provider.
// Implementations return ErrInvalidToken for tokens the provider rejects and
// ErrUpstreamUnavailable when the provider cannot be reached.
type TokenVerifier interface {
	Verify(ctx context.Context, bearerToken string) (Principal, error)
}

// IntegrationChecker reports whether a user has a usable Google integration.
type IntegrationChecker interface {
	HasValidIntegration(ctx context.Context, userID string) (bool, error)
}
