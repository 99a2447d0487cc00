package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mentora/internal/config"
	"mentora/internal/domain"
)

func TestSummarize(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer gsk_test" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Lecture at nine, then finish the essay.  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	s, err := NewSummarizer(config.Config{
		GroqAPIKey:  "gsk_test",
		GroqModel:   "llama-3.1-8b-instant",
		GroqBaseURL: srv.URL + "/openai/v1/",
	})
	if err != nil {
		t.Fatalf("new summarizer: %v", err)
	}
	due := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	text, err := s.Summarize(context.Background(), "2026-03-02",
		[]domain.Event{{Summary: "Lecture", Start: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}},
		[]domain.Task{{Title: "Essay", Due: &due}},
	)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if text != "Lecture at nine, then finish the essay." {
		t.Fatalf("unexpected text %q", text)
	}
	if got.Model != "llama-3.1-8b-instant" || len(got.Messages) != 2 {
		t.Fatalf("unexpected request: %+v", got)
	}
	if !strings.Contains(got.Messages[1].Content, "09:00-10:00: Lecture") || !strings.Contains(got.Messages[1].Content, "Essay (due 2026-03-05)") {
		t.Fatalf("prompt missing planner data: %q", got.Messages[1].Content)
	}
}

func TestSummarize_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer srv.Close()

	s, err := NewSummarizer(config.Config{GroqAPIKey: "k", GroqModel: "m", GroqBaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new summarizer: %v", err)
	}
	if _, err := s.Summarize(context.Background(), "2026-03-02", nil, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestSummarize_CancelledWhileThrottled(t *testing.T) {
	s, err := NewSummarizer(config.Config{GroqAPIKey: "k", GroqModel: "m", GroqBaseURL: "http://127.0.0.1:1", GroqRequestsPerMinute: 1})
	if err != nil {
		t.Fatalf("new summarizer: %v", err)
	}
	s.limiter.Allow()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.Summarize(ctx, "2026-03-02", nil, nil); err == nil {
		t.Fatal("expected throttled call to fail on cancelled context")
	}
}

func TestNewSummarizer_RequiresKey(t *testing.T) {
	if _, err := NewSummarizer(config.Config{}); err == nil {
		t.Fatal("expected error without api key")
	}
}
