package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mentora/internal/domain"
	"mentora/internal/logger"
)

const maxEventRange = 62 * 24 * time.Hour

// Planner proxies calendar and task calls to the user's Google account.
// Callers are expected to have passed the integration gate already.
type Planner struct {
	Store   domain.IntegrationStore
	Clients PlannerClientFactory
	Logger  *slog.Logger
}

func (p *Planner) ListEvents(ctx context.Context, principal domain.Principal, from, to time.Time) ([]domain.Event, error) {
	if to.IsZero() {
		to = from.Add(7 * 24 * time.Hour)
	}
	if !to.After(from) {
		return nil, fmt.Errorf("end must be after start: %w", domain.ErrInvalidArgument)
	}
	if to.Sub(from) > maxEventRange {
		return nil, fmt.Errorf("range exceeds %d days: %w", int(maxEventRange.Hours()/24), domain.ErrInvalidArgument)
	}
	client, err := p.client(ctx, principal)
	if err != nil {
		return nil, err
	}
	events, err := client.ListEvents(ctx, from, to)
	if err != nil {
		return nil, p.upstream("list events", principal, err)
	}
	return events, nil
}

func (p *Planner) CreateEvent(ctx context.Context, principal domain.Principal, event domain.Event) (domain.Event, error) {
	event.Summary = strings.TrimSpace(event.Summary)
	if event.Summary == "" {
		return domain.Event{}, fmt.Errorf("summary is required: %w", domain.ErrInvalidArgument)
	}
	if event.Start.IsZero() || !event.End.After(event.Start) {
		return domain.Event{}, fmt.Errorf("end must be after start: %w", domain.ErrInvalidArgument)
	}
	client, err := p.client(ctx, principal)
	if err != nil {
		return domain.Event{}, err
	}
	created, err := client.CreateEvent(ctx, event)
	if err != nil {
		return domain.Event{}, p.upstream("create event", principal, err)
	}
	return created, nil
}

func (p *Planner) ListTasks(ctx context.Context, principal domain.Principal, includeCompleted bool) ([]domain.Task, error) {
	client, err := p.client(ctx, principal)
	if err != nil {
		return nil, err
	}
	tasks, err := client.ListTasks(ctx, includeCompleted)
	if err != nil {
		return nil, p.upstream("list tasks", principal, err)
	}
	return tasks, nil
}

func (p *Planner) CreateTask(ctx context.Context, principal domain.Principal, task domain.Task) (domain.Task, error) {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return domain.Task{}, fmt.Errorf("title is required: %w", domain.ErrInvalidArgument)
	}
	client, err := p.client(ctx, principal)
	if err != nil {
		return domain.Task{}, err
	}
	created, err := client.CreateTask(ctx, task)
	if err != nil {
		return domain.Task{}, p.upstream("create task", principal, err)
	}
	return created, nil
}

func (p *Planner) client(ctx context.Context, principal domain.Principal) (PlannerClient, error) {
	if principal.Subject == "" {
		return nil, domain.ErrAuthenticationRequired
	}
	if p.Store == nil || p.Clients == nil {
		return nil, fmt.Errorf("planner not configured: %w", domain.ErrUpstreamUnavailable)
	}
	grant, err := p.Store.Get(ctx, principal.Subject)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrIntegrationNotConnected
	}
	if err != nil {
		return nil, err
	}
	return p.Clients.ForGrant(ctx, *grant, p.persistRefreshed)
}

func (p *Planner) persistRefreshed(ctx context.Context, grant domain.GoogleIntegration) {
	grant.UpdatedAt = time.Now()
	if err := p.Store.Upsert(ctx, grant); err != nil {
		logger.OrDefault(p.Logger).Warn("persist refreshed google token failed", "user_id", grant.UserID, "err", err)
	}
}

func (p *Planner) upstream(op string, principal domain.Principal, err error) error {
	logger.OrDefault(p.Logger).Error("google api call failed", "op", op, "user_id", principal.Subject, "err", err)
	return fmt.Errorf("%s: %w", op, domain.ErrUpstreamUnavailable)
}
