package usecase

import (
	"context"
	"time"

	"mentora/internal/domain"
)

// OAuthProvider runs the authorization-code half of the Google OAuth flow.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (domain.GoogleIntegration, error)
}

// TokenRefreshed is called when a provider client rotates the access token.
type TokenRefreshed func(ctx context.Context, grant domain.GoogleIntegration)

type PlannerClientFactory interface {
	ForGrant(ctx context.Context, grant domain.GoogleIntegration, onRefresh TokenRefreshed) (PlannerClient, error)
}

// PlannerClient is a per-user client for the calendar and task provider.
type PlannerClient interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]domain.Event, error)
	CreateEvent(ctx context.Context, event domain.Event) (domain.Event, error)
	ListTasks(ctx context.Context, includeCompleted bool) ([]domain.Task, error)
	CreateTask(ctx context.Context, task domain.Task) (domain.Task, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, day string, events []domain.Event, tasks []domain.Task) (string, error)
	Model() string
}
