package oidc

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"mentora/internal/config"
	"mentora/internal/domain"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

const testJWKSURL = "https://issuer.test/keys"

func TestVerify_ValidToken(t *testing.T) {
	key := generateKey(t)
	verifier := newTestVerifier(t, serveJWKS(t, &key.PublicKey, "kid-1"), 60)

	now := time.Now().UTC()
	token := signToken(t, key, "kid-1", map[string]any{
		"iss":   "https://issuer.test",
		"aud":   "mentora-api",
		"sub":   "user-1",
		"email": "ada@example.com",
		"role":  "authenticated",
		"exp":   now.Add(5 * time.Minute).Unix(),
		"nbf":   now.Add(-time.Minute).Unix(),
	})

	principal, err := verifier.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if principal.Subject != "user-1" || principal.Email != "ada@example.com" || principal.Role != "authenticated" {
		t.Fatalf("unexpected principal: %+v", principal)
	}
}

func TestVerify_InvalidClaims(t *testing.T) {
	key := generateKey(t)
	verifier := newTestVerifier(t, serveJWKS(t, &key.PublicKey, "kid-1"), 0)

	now := time.Now().UTC()
	cases := []struct {
		name   string
		claims map[string]any
	}{
		{"missing exp", map[string]any{"iss": "https://issuer.test", "aud": "mentora-api", "sub": "u"}},
		{"expired", map[string]any{"iss": "https://issuer.test", "aud": "mentora-api", "sub": "u", "exp": now.Add(-5 * time.Minute).Unix()}},
		{"nbf in future", map[string]any{"iss": "https://issuer.test", "aud": "mentora-api", "sub": "u", "exp": now.Add(5 * time.Minute).Unix(), "nbf": now.Add(5 * time.Minute).Unix()}},
		{"wrong issuer", map[string]any{"iss": "https://wrong", "aud": "mentora-api", "sub": "u", "exp": now.Add(5 * time.Minute).Unix()}},
		{"wrong audience", map[string]any{"iss": "https://issuer.test", "aud": "wrong", "sub": "u", "exp": now.Add(5 * time.Minute).Unix()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token := signToken(t, key, "kid-1", tc.claims)
			if _, err := verifier.Verify(context.Background(), token); !errors.Is(err, domain.ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestVerify_MalformedAndForeignTokens(t *testing.T) {
	key := generateKey(t)
	other := generateKey(t)
	verifier := newTestVerifier(t, serveJWKS(t, &key.PublicKey, "kid-1"), 0)
	claims := map[string]any{"iss": "https://issuer.test", "aud": "mentora-api", "sub": "u", "exp": time.Now().Add(time.Minute).Unix()}

	for name, token := range map[string]string{
		"garbage":        "not-a-jwt",
		"empty":          "   ",
		"unknown kid":    signToken(t, key, "kid-9", claims),
		"wrong key":      signToken(t, other, "kid-1", claims),
		"two segments":   "eyJhbGciOiJSUzI1NiJ9.e30",
		"alg none style": "eyJhbGciOiJub25lIn0.eyJzdWIiOiJ1In0.",
	} {
		if _, err := verifier.Verify(context.Background(), token); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestVerify_KeySetUnavailable(t *testing.T) {
	key := generateKey(t)
	client := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}
	verifier := newTestVerifier(t, client, 0)
	token := signToken(t, key, "kid-1", map[string]any{"sub": "u", "exp": time.Now().Add(time.Minute).Unix()})
	if _, err := verifier.Verify(context.Background(), token); !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestNewVerifier_Discovery(t *testing.T) {
	key := generateKey(t)
	jwks := buildJWKS(t, &key.PublicKey, "kid-1")
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		switch req.URL.String() {
		case "https://issuer.test" + discoveryPath:
			return jsonResponse(http.StatusOK, `{"jwks_uri":"`+testJWKSURL+`"}`), nil
		case testJWKSURL:
			return jsonResponse(http.StatusOK, jwks), nil
		}
		return jsonResponse(http.StatusNotFound, `{}`), nil
	})}
	verifier, err := NewVerifier(context.Background(), config.Config{OIDCIssuerURL: "https://issuer.test"}, WithHTTPClient(client))
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token := signToken(t, key, "kid-1", map[string]any{"iss": "https://issuer.test", "sub": "u", "exp": time.Now().Add(time.Minute).Unix()})
	if _, err := verifier.Verify(context.Background(), token); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestKeySet_UnknownKidRefreshes(t *testing.T) {
	key := generateKey(t)
	first := buildJWKS(t, &key.PublicKey, "kid-1")
	second := buildJWKS(t, &key.PublicKey, "kid-2")
	var calls atomic.Int32
	client := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		if calls.Add(1) == 1 {
			return jsonResponse(http.StatusOK, first), nil
		}
		return jsonResponse(http.StatusOK, second), nil
	})}
	set := newKeySet(testJWKSURL, client, time.Now)
	if _, err := set.get(context.Background(), "kid-1"); err != nil {
		t.Fatalf("get kid-1: %v", err)
	}
	if _, err := set.get(context.Background(), "kid-2"); err != nil {
		t.Fatalf("get kid-2: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected one refresh on kid miss, got %d fetches", got)
	}
}

func TestKeySet_StaleKeysUsedUntilMaxStale(t *testing.T) {
	key := generateKey(t)
	client := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("fetch failed")
	})}
	now := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	set := newKeySet(testJWKSURL, client, func() time.Time { return now })
	set.keys = map[string]jose.JSONWebKey{"kid-1": {Key: &key.PublicKey, KeyID: "kid-1"}}
	set.expiresAt = now.Add(-time.Minute)
	set.staleUntil = now.Add(10 * time.Minute)

	if _, err := set.get(context.Background(), "kid-1"); err != nil {
		t.Fatalf("expected stale key to be used: %v", err)
	}
	now = now.Add(20 * time.Minute)
	if _, err := set.get(context.Background(), "kid-1"); err == nil {
		t.Fatal("expected error after max stale window")
	}
}

func newTestVerifier(t *testing.T, client *http.Client, skewSecs int) *Verifier {
	t.Helper()
	cfg := config.Config{
		OIDCIssuerURL:     "https://issuer.test",
		OIDCAudience:      "mentora-api",
		OIDCJWKSURL:       testJWKSURL,
		OIDCClockSkewSecs: skewSecs,
	}
	verifier, err := NewVerifier(context.Background(), cfg, WithHTTPClient(client))
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return verifier
}

func serveJWKS(t *testing.T, key *rsa.PublicKey, kid string) *http.Client {
	jwks := buildJWKS(t, key, kid)
	return &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.String() == testJWKSURL {
			return jsonResponse(http.StatusOK, jwks), nil
		}
		return jsonResponse(http.StatusNotFound, `{}`), nil
	})}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func buildJWKS(t *testing.T, key *rsa.PublicKey, kid string) string {
	t.Helper()
	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{Key: key, KeyID: kid, Algorithm: string(jose.RS256), Use: "sig"}}}
	out, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	return string(out)
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims map[string]any) string {
	t.Helper()
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: jose.JSONWebKey{Key: key, KeyID: kid}},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	token, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}
