package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewSelectsProvider(t *testing.T) {
	cases := []struct {
		provider string
		wantErr  bool
	}{
		{"anthropic", false},
		{"", false},
		{"groq", false},
		{"nope", true},
	}
	for _, tc := range cases {
		_, err := New(Options{Provider: tc.provider, APIKey: "k"})
		if (err != nil) != tc.wantErr {
			t.Errorf("New(%q): err=%v", tc.provider, err)
		}
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Options{Provider: "anthropic"}); err != ErrNoAPIKey {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("missing api key header, got %q", got)
		}
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "from manim import *"}},
		})
	}))
	defer srv.Close()

	c := NewAnthropicClient(Options{APIKey: "test-key", BaseURL: srv.URL, Timeout: 5 * time.Second})
	got, err := c.Complete(context.Background(), "draw a circle")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "from manim import *" {
		t.Errorf("got %q", got)
	}
}

func TestGroqCompleteRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	c := NewGroqClient(Options{APIKey: "test-key", BaseURL: srv.URL, Timeout: 10 * time.Second})
	got, err := c.CompleteWithSystem(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("CompleteWithSystem: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q", got)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected one retry, got %d calls", calls)
	}
}

func TestGroqSendsSystemMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req groqRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("system message not first: %+v", req.Messages)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	c := NewGroqClient(Options{APIKey: "k", BaseURL: srv.URL, Timeout: 5 * time.Second})
	if _, err := c.CompleteWithSystem(context.Background(), "be terse", "hi"); err != nil {
		t.Fatalf("CompleteWithSystem: %v", err)
	}
}

func TestAnthropicAPIErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"type": "overloaded_error", "message": "overloaded"},
		})
	}))
	defer srv.Close()

	c := NewAnthropicClient(Options{APIKey: "k", BaseURL: srv.URL, Timeout: 5 * time.Second})
	if _, err := c.Complete(context.Background(), "x"); err == nil {
		t.Fatal("expected API error")
	}
}
