// Package groq generates daily summaries through Groq's OpenAI-compatible
// chat completions API.
package groq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mentora/internal/config"
	"mentora/internal/domain"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	maxOutputTokens = 300
	systemPrompt    = "You are a study planner assistant. Summarize the user's day in at most five short sentences. " +
		"Mention fixed commitments first, then the most urgent open tasks. Plain text only."
)

type Summarizer struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
}

func NewSummarizer(cfg config.Config) (*Summarizer, error) {
	if cfg.GroqAPIKey == "" {
		return nil, errors.New("GROQ_API_KEY is required")
	}
	clientCfg := openai.DefaultConfig(cfg.GroqAPIKey)
	if cfg.GroqBaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.GroqBaseURL, "/")
	}
	perMinute := cfg.GroqRequestsPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	return &Summarizer{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.GroqModel,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}, nil
}

func (s *Summarizer) Model() string {
	return s.model
}

// Summarize waits for the shared outbound budget before calling the model;
// a cancelled ctx aborts the wait.
func (s *Summarizer) Summarize(ctx context.Context, day string, events []domain.Event, tasks []domain.Task) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("groq rate limit: %w", err)
	}
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   maxOutputTokens,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(day, events, tasks)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("groq chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("groq returned no choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("groq returned an empty summary")
	}
	return text, nil
}

func buildPrompt(day string, events []domain.Event, tasks []domain.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Day: %s\n\nEvents:\n", day)
	if len(events) == 0 {
		b.WriteString("- none\n")
	}
	for _, e := range events {
		if e.AllDay {
			fmt.Fprintf(&b, "- all day: %s\n", e.Summary)
			continue
		}
		fmt.Fprintf(&b, "- %s-%s: %s", e.Start.Format("15:04"), e.End.Format("15:04"), e.Summary)
		if e.Location != "" {
			fmt.Fprintf(&b, " (%s)", e.Location)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nOpen tasks:\n")
	if len(tasks) == 0 {
		b.WriteString("- none\n")
	}
	for _, t := range tasks {
		if t.Due != nil {
			fmt.Fprintf(&b, "- %s (due %s)\n", t.Title, t.Due.Format("2006-01-02"))
			continue
		}
		fmt.Fprintf(&b, "- %s\n", t.Title)
	}
	return b.String()
}
