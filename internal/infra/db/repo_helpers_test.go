package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestScopesRoundTrip(t *testing.T) {
	scopes := []string{"https://www.googleapis.com/auth/calendar", "https://www.googleapis.com/auth/tasks"}
	got := splitScopes(joinScopes(scopes))
	if len(got) != 2 || got[0] != scopes[0] || got[1] != scopes[1] {
		t.Fatalf("unexpected scopes: %v", got)
	}
	if splitScopes("") != nil {
		t.Fatal("expected nil scopes for empty column")
	}
}

func TestTimePtr(t *testing.T) {
	if timePtr(time.Time{}) != nil {
		t.Fatal("zero time should map to NULL")
	}
	if !timeValue(nil).IsZero() {
		t.Fatal("NULL should map to zero time")
	}
}

func TestIntegrationRepository_NoDB(t *testing.T) {
	repo := NewIntegrationRepository(nil)
	if _, err := repo.HasValidIntegration(context.Background(), "3f6b2c1e-8d4a-4b7e-9c2d-1a5e6f7b8c9d"); !errors.Is(err, errDBUnavailable) {
		t.Fatalf("expected errDBUnavailable, got %v", err)
	}
}
