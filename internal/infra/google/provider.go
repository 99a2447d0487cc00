package google

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mentora/internal/domain"
	"mentora/internal/usecase"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	gtasks "google.golang.org/api/tasks/v1"
)

const (
	primaryCalendar = "primary"
	defaultTaskList = "@default"
	maxEvents       = 250
	maxTasks        = 100
)

// Provider builds per-user Calendar and Tasks clients from stored grants.
type Provider struct {
	oauth   *OAuth
	options []option.ClientOption
}

func NewProvider(oauth *OAuth, opts ...option.ClientOption) *Provider {
	return &Provider{oauth: oauth, options: opts}
}

func (p *Provider) ForGrant(ctx context.Context, grant domain.GoogleIntegration, onRefresh usecase.TokenRefreshed) (usecase.PlannerClient, error) {
	tok := tokenFromGrant(grant)
	source := &refreshNotifier{
		ctx:       ctx,
		base:      p.oauth.tokenSource(ctx, tok),
		grant:     grant,
		last:      tok.AccessToken,
		onRefresh: onRefresh,
	}
	opts := append([]option.ClientOption{option.WithTokenSource(oauth2.ReuseTokenSource(tok, source))}, p.options...)

	cal, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	tasks, err := gtasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("tasks service: %w", err)
	}
	return &plannerClient{calendar: cal, tasks: tasks}, nil
}

// refreshNotifier reports rotated access tokens so they can be stored.
type refreshNotifier struct {
	ctx       context.Context
	base      oauth2.TokenSource
	onRefresh usecase.TokenRefreshed

	mu    sync.Mutex
	grant domain.GoogleIntegration
	last  string
}

func (r *refreshNotifier) Token() (*oauth2.Token, error) {
	tok, err := r.base.Token()
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	changed := tok.AccessToken != r.last
	r.last = tok.AccessToken
	grant := r.grant
	r.mu.Unlock()
	if changed && r.onRefresh != nil {
		grant.AccessToken = tok.AccessToken
		grant.Expiry = tok.Expiry
		grant.TokenType = tok.TokenType
		if tok.RefreshToken != "" {
			grant.RefreshToken = tok.RefreshToken
		}
		r.onRefresh(r.ctx, grant)
	}
	return tok, nil
}

type plannerClient struct {
	calendar *gcal.Service
	tasks    *gtasks.Service
}

func (c *plannerClient) ListEvents(ctx context.Context, from, to time.Time) ([]domain.Event, error) {
	res, err := c.calendar.Events.List(primaryCalendar).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxEvents).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events := make([]domain.Event, 0, len(res.Items))
	for _, item := range res.Items {
		if item.Status == "cancelled" {
			continue
		}
		events = append(events, eventFromAPI(item))
	}
	return events, nil
}

func (c *plannerClient) CreateEvent(ctx context.Context, event domain.Event) (domain.Event, error) {
	created, err := c.calendar.Events.Insert(primaryCalendar, eventToAPI(event)).Context(ctx).Do()
	if err != nil {
		return domain.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return eventFromAPI(created), nil
}

func (c *plannerClient) ListTasks(ctx context.Context, includeCompleted bool) ([]domain.Task, error) {
	res, err := c.tasks.Tasks.List(defaultTaskList).
		ShowCompleted(includeCompleted).
		ShowHidden(includeCompleted).
		MaxResults(maxTasks).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks := make([]domain.Task, 0, len(res.Items))
	for _, item := range res.Items {
		if item.Deleted {
			continue
		}
		tasks = append(tasks, taskFromAPI(item))
	}
	return tasks, nil
}

func (c *plannerClient) CreateTask(ctx context.Context, task domain.Task) (domain.Task, error) {
	body := &gtasks.Task{Title: task.Title, Notes: task.Notes}
	if task.Due != nil {
		body.Due = task.Due.UTC().Format(time.RFC3339)
	}
	created, err := c.tasks.Tasks.Insert(defaultTaskList, body).Context(ctx).Do()
	if err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return taskFromAPI(created), nil
}

func eventFromAPI(item *gcal.Event) domain.Event {
	event := domain.Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		HTMLLink:    item.HtmlLink,
	}
	if item.Start != nil {
		event.Start, event.AllDay = parseEventTime(item.Start)
	}
	if item.End != nil {
		event.End, _ = parseEventTime(item.End)
	}
	return event
}

func parseEventTime(t *gcal.EventDateTime) (time.Time, bool) {
	if t.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, t.DateTime)
		if err == nil {
			return parsed, false
		}
	}
	if t.Date != "" {
		parsed, err := time.Parse("2006-01-02", t.Date)
		if err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func eventToAPI(event domain.Event) *gcal.Event {
	out := &gcal.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
	}
	if event.AllDay {
		out.Start = &gcal.EventDateTime{Date: event.Start.Format("2006-01-02")}
		out.End = &gcal.EventDateTime{Date: event.End.Format("2006-01-02")}
	} else {
		out.Start = &gcal.EventDateTime{DateTime: event.Start.Format(time.RFC3339)}
		out.End = &gcal.EventDateTime{DateTime: event.End.Format(time.RFC3339)}
	}
	return out
}

func taskFromAPI(item *gtasks.Task) domain.Task {
	task := domain.Task{
		ID:        item.Id,
		Title:     item.Title,
		Notes:     item.Notes,
		Status:    item.Status,
		Completed: item.Status == domain.TaskStatusCompleted,
	}
	if item.Due != "" {
		if due, err := time.Parse(time.RFC3339, item.Due); err == nil {
			task.Due = &due
		}
	}
	return task
}
