package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devinhayward/concrete-tickets/internal/llm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClientComplete(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `  {"Ticket No.": "1"}  `}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	}, testLogger())

	out, err := c.Complete(context.Background(), llm.Prompt{System: "sys", User: "user"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != `{"Ticket No.": "1"}` {
		t.Errorf("content = %q, want trimmed JSON", out)
	}

	if gotBody["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", gotBody["model"])
	}
	rf, _ := gotBody["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("response_format = %v, want json_object", gotBody["response_format"])
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	first, _ := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "sys" {
		t.Errorf("first message = %v", first)
	}
}

func TestClientCompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, testLogger())
	if _, err := c.Complete(context.Background(), llm.Prompt{User: "u"}); err == nil {
		t.Error("want error for non-2xx status")
	}
}

func TestClientCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, testLogger())
	if _, err := c.Complete(context.Background(), llm.Prompt{User: "u"}); err == nil {
		t.Error("want error for empty choices")
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{APIKey: "k"}, nil)
	if c.cfg.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("base url = %q", c.cfg.BaseURL)
	}
	if c.cfg.Model == "" {
		t.Error("model default missing")
	}
	if c.cfg.Timeout <= 0 {
		t.Error("timeout default missing")
	}
}
