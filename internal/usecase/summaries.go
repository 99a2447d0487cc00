package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mentora/internal/domain"
	"mentora/internal/logger"
)

const dayLayout = "2006-01-02"

// Summaries produces a daily digest of a user's events and open tasks.
type Summaries struct {
	Planner    *Planner
	Summarizer Summarizer
	Now        func() time.Time
	Logger     *slog.Logger
}

// Daily summarizes day (YYYY-MM-DD, empty for today) in loc.
func (s *Summaries) Daily(ctx context.Context, principal domain.Principal, day string, loc *time.Location) (domain.Summary, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, err := s.dayStart(day, loc)
	if err != nil {
		return domain.Summary{}, err
	}
	if s.Planner == nil || s.Summarizer == nil {
		return domain.Summary{}, fmt.Errorf("summaries not configured: %w", domain.ErrUpstreamUnavailable)
	}
	events, err := s.Planner.ListEvents(ctx, principal, start, start.Add(24*time.Hour))
	if err != nil {
		return domain.Summary{}, err
	}
	tasks, err := s.Planner.ListTasks(ctx, principal, false)
	if err != nil {
		return domain.Summary{}, err
	}
	text, err := s.Summarizer.Summarize(ctx, start.Format(dayLayout), events, tasks)
	if err != nil {
		logger.OrDefault(s.Logger).Error("summary generation failed", "user_id", principal.Subject, "err", err)
		return domain.Summary{}, fmt.Errorf("summarize: %w", domain.ErrUpstreamUnavailable)
	}
	return domain.Summary{
		Day:         start.Format(dayLayout),
		Text:        text,
		EventCount:  len(events),
		TaskCount:   len(tasks),
		GeneratedAt: s.now().UTC(),
		Model:       s.Summarizer.Model(),
	}, nil
}

func (s *Summaries) dayStart(day string, loc *time.Location) (time.Time, error) {
	if day == "" {
		now := s.now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	}
	parsed, err := time.ParseInLocation(dayLayout, day, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("day must be YYYY-MM-DD: %w", domain.ErrInvalidArgument)
	}
	return parsed, nil
}

func (s *Summaries) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
