package usecase

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"mentora/internal/domain"
	"mentora/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "3f6b2c1e-8d4a-4b7e-9c2d-1a5e6f7b8c9d"

type fakeVerifier struct {
	principals map[string]domain.Principal
	err        error
	calls      atomic.Int32
	block      bool
	panicWith  any
}

func (f *fakeVerifier) Verify(ctx context.Context, token string) (domain.Principal, error) {
	f.calls.Add(1)
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.block {
		<-ctx.Done()
		return domain.Principal{}, ctx.Err()
	}
	if f.err != nil {
		return domain.Principal{}, f.err
	}
	p, ok := f.principals[token]
	if !ok {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	return p, nil
}

func newResolver(v domain.TokenVerifier) *IdentityResolver {
	return NewIdentityResolver(IdentityResolverConfig{
		Verifier:      v,
		VerifyTimeout: 50 * time.Millisecond,
		Logger:        logger.Discard(),
	})
}

func requireAuthError(t *testing.T, err error, target error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, target)
	authErr, ok := domain.IsAuthError(err)
	require.True(t, ok, "expected AuthError, got %T", err)
	assert.Equal(t, code, authErr.Code)
}

func TestIdentityResolver_BearerValid(t *testing.T) {
	v := &fakeVerifier{principals: map[string]domain.Principal{
		"good": {Subject: testUserID, Email: "student@mentora.app"},
	}}
	r := newResolver(v)

	p, err := r.Resolve(context.Background(), domain.BearerToken{Token: "good"})
	require.NoError(t, err)
	assert.Equal(t, testUserID, p.Subject)
	assert.Equal(t, "student@mentora.app", p.Email)
	assert.Equal(t, domain.TierVerified, p.Tier)

	again, err := r.Resolve(context.Background(), domain.BearerToken{Token: "good"})
	require.NoError(t, err)
	assert.Equal(t, p.Subject, again.Subject)
	assert.Equal(t, int32(2), v.calls.Load())
}

func TestIdentityResolver_BearerInvalid(t *testing.T) {
	r := newResolver(&fakeVerifier{})
	p, err := r.Resolve(context.Background(), domain.BearerToken{Token: "bad"})
	requireAuthError(t, err, domain.ErrInvalidToken, CodeInvalidToken)
	assert.Empty(t, p.Subject)
}

func TestIdentityResolver_BearerEmptyTokenSkipsVerifier(t *testing.T) {
	v := &fakeVerifier{}
	_, err := newResolver(v).Resolve(context.Background(), domain.BearerToken{})
	requireAuthError(t, err, domain.ErrInvalidToken, CodeInvalidToken)
	assert.Zero(t, v.calls.Load())
}

func TestIdentityResolver_VerifierReturnsNoSubject(t *testing.T) {
	v := &fakeVerifier{principals: map[string]domain.Principal{"blank": {}}}
	_, err := newResolver(v).Resolve(context.Background(), domain.BearerToken{Token: "blank"})
	requireAuthError(t, err, domain.ErrInvalidToken, CodeInvalidToken)
}

func TestIdentityResolver_UpstreamFailuresBecomeInvalidToken(t *testing.T) {
	cases := map[string]*fakeVerifier{
		"unreachable": {err: errors.New("dial tcp 10.0.0.1:443: connect: connection refused")},
		"upstream":    {err: domain.ErrUpstreamUnavailable},
		"timeout":     {block: true},
		"panic":       {panicWith: "boom"},
	}
	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newResolver(v).Resolve(context.Background(), domain.BearerToken{Token: "tok"})
			requireAuthError(t, err, domain.ErrInvalidToken, CodeInvalidToken)
			assert.NotContains(t, err.Error(), "connection refused")
		})
	}
}

func TestIdentityResolver_ResolveOptionalLogsFailuresAtDebug(t *testing.T) {
	cases := map[string]*fakeVerifier{
		"unreachable": {err: errors.New("dial tcp 10.0.0.1:443: connect: connection refused")},
		"timeout":     {block: true},
		"panic":       {panicWith: "boom"},
	}
	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			r := NewIdentityResolver(IdentityResolverConfig{
				Verifier:      v,
				VerifyTimeout: 50 * time.Millisecond,
				Logger:        logger.New("debug", "text", &buf),
			})

			_, err := r.ResolveOptional(context.Background(), domain.BearerToken{Token: "tok"})
			requireAuthError(t, err, domain.ErrInvalidToken, CodeInvalidToken)
			assert.Contains(t, buf.String(), "level=DEBUG")
			assert.NotContains(t, buf.String(), "level=ERROR")

			buf.Reset()
			_, err = r.Resolve(context.Background(), domain.BearerToken{Token: "tok"})
			require.Error(t, err)
			assert.Contains(t, buf.String(), "level=ERROR")
		})
	}
}

func TestIdentityResolver_NilVerifier(t *testing.T) {
	_, err := newResolver(nil).Resolve(context.Background(), domain.BearerToken{Token: "tok"})
	requireAuthError(t, err, domain.ErrInvalidToken, CodeInvalidToken)
}

func TestIdentityResolver_LegacyHeader(t *testing.T) {
	r := newResolver(&fakeVerifier{})

	p, err := r.Resolve(context.Background(), domain.LegacyUserID{Value: "3F6B2C1E-8D4A-4B7E-9C2D-1A5E6F7B8C9D"})
	require.NoError(t, err)
	assert.Equal(t, testUserID, p.Subject)
	assert.Equal(t, domain.TierLegacyHeader, p.Tier)
	assert.False(t, p.Verified())

	for _, bad := range []string{
		"not-a-uuid",
		"3f6b2c1e8d4a4b7e9c2d1a5e6f7b8c9d",
		"{3f6b2c1e-8d4a-4b7e-9c2d-1a5e6f7b8c9d}",
		"urn:uuid:3f6b2c1e-8d4a-4b7e-9c2d-1a5e6f7b8c9d",
		"3f6b2c1e-8d4a-4b7e-9c2d-1a5e6f7b8c9g",
		"3f6b2c1e_8d4a_4b7e_9c2d_1a5e6f7b8c9d",
	} {
		_, err := r.Resolve(context.Background(), domain.LegacyUserID{Value: bad})
		requireAuthError(t, err, domain.ErrMalformedCredential, CodeInvalidUserID)
	}
}

func TestIdentityResolver_NoCredential(t *testing.T) {
	r := newResolver(&fakeVerifier{})
	_, err := r.Resolve(context.Background(), domain.NoCredential{})
	requireAuthError(t, err, domain.ErrAuthenticationRequired, CodeAuthRequired)

	_, err = r.Resolve(context.Background(), nil)
	requireAuthError(t, err, domain.ErrAuthenticationRequired, CodeAuthRequired)
}

func TestCredentialExtractor_Precedence(t *testing.T) {
	dev := domain.NewCredentialExtractor(false)
	prod := domain.NewCredentialExtractor(true)

	assert.Equal(t, domain.BearerToken{Token: "abc"}, dev.Extract("Bearer abc", testUserID))
	assert.Equal(t, domain.BearerToken{Token: "abc"}, dev.Extract("bearer   abc ", ""))
	assert.Equal(t, domain.NoCredential{}, dev.Extract("Bearer ", ""))
	assert.Equal(t, domain.LegacyUserID{Value: testUserID}, dev.Extract("Bearer", testUserID))
	assert.Equal(t, domain.LegacyUserID{Value: testUserID}, dev.Extract("bearer   ", testUserID))
	assert.Equal(t, domain.LegacyUserID{Value: testUserID}, dev.Extract("", testUserID))
	assert.Equal(t, domain.LegacyUserID{Value: testUserID}, dev.Extract("Basic Zm9vOmJhcg==", testUserID))
	assert.Equal(t, domain.NoCredential{}, dev.Extract("", ""))
	assert.Equal(t, domain.NoCredential{}, dev.Extract("Bearerabc", ""))

	assert.Equal(t, domain.NoCredential{}, prod.Extract("", testUserID))
	assert.Equal(t, domain.BearerToken{Token: "abc"}, prod.Extract("Bearer abc", testUserID))
	assert.Equal(t, domain.NoCredential{}, prod.Extract("Bearer", testUserID))
	assert.False(t, prod.LegacyHeaderEnabled())
	assert.True(t, dev.LegacyHeaderEnabled())
}

func TestIdentityResolver_ProductionIgnoresWellFormedLegacyHeader(t *testing.T) {
	r := newResolver(&fakeVerifier{})
	cred := domain.NewCredentialExtractor(true).Extract("", testUserID)
	_, err := r.Resolve(context.Background(), cred)
	requireAuthError(t, err, domain.ErrAuthenticationRequired, CodeAuthRequired)
}
