package supabase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"mentora/internal/config"
	"mentora/internal/domain"
)

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

func newTestVerifier(t *testing.T, rt roundTripperFunc) *Verifier {
	t.Helper()
	v, err := NewVerifier(config.Config{
		SupabaseURL:     "https://project.supabase.test/",
		SupabaseAnonKey: "anon-key",
	}, WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return v
}

func TestVerify_ValidToken(t *testing.T) {
	v := newTestVerifier(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.String() != "https://project.supabase.test/auth/v1/user" {
			t.Fatalf("unexpected url %s", req.URL)
		}
		if req.Header.Get("apikey") != "anon-key" || req.Header.Get("Authorization") != "Bearer tok" {
			t.Fatalf("missing auth headers: %v", req.Header)
		}
		return jsonResponse(http.StatusOK, `{"id":"3f6b2c1e-8d4a-4b7e-9c2d-1a5e6f7b8c9d","email":"ada@example.com","role":"authenticated","aud":"authenticated"}`), nil
	})
	principal, err := v.Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if principal.Subject != "3f6b2c1e-8d4a-4b7e-9c2d-1a5e6f7b8c9d" || principal.Email != "ada@example.com" {
		t.Fatalf("unexpected principal: %+v", principal)
	}
}

func TestVerify_ErrorClasses(t *testing.T) {
	cases := []struct {
		name string
		rt   roundTripperFunc
		want error
	}{
		{"unauthorized", func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusUnauthorized, `{"msg":"invalid JWT"}`), nil
		}, domain.ErrInvalidToken},
		{"forbidden", func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusForbidden, `{}`), nil
		}, domain.ErrInvalidToken},
		{"no id", func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{}`), nil
		}, domain.ErrInvalidToken},
		{"server error", func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusInternalServerError, `{}`), nil
		}, domain.ErrUpstreamUnavailable},
		{"transport", func(*http.Request) (*http.Response, error) {
			return nil, errors.New("dial tcp: connection refused")
		}, domain.ErrUpstreamUnavailable},
		{"bad json", func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{`), nil
		}, domain.ErrUpstreamUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := newTestVerifier(t, tc.rt)
			if _, err := v.Verify(context.Background(), "tok"); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestVerify_EmptyTokenSkipsNetwork(t *testing.T) {
	v := newTestVerifier(t, func(*http.Request) (*http.Response, error) {
		t.Fatal("unexpected request")
		return nil, nil
	})
	if _, err := v.Verify(context.Background(), " "); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewVerifier_RequiresConfig(t *testing.T) {
	if _, err := NewVerifier(config.Config{SupabaseAnonKey: "k"}); err == nil {
		t.Fatal("expected error without url")
	}
	if _, err := NewVerifier(config.Config{SupabaseURL: "https://x.supabase.test"}); err == nil {
		t.Fatal("expected error without anon key")
	}
}
