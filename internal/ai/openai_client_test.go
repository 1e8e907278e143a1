package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestOpenAIGenerateSuccess(t *testing.T) {
	var captured map[string]any
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization header = %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "gpt-4o-mini",
			"choices": []any{map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "De BOD-piek is opvallend."},
			}},
			"usage": map[string]any{"prompt_tokens": 20, "completion_tokens": 6, "total_tokens": 26},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", srv.URL+"/", 2*time.Second, 1)
	resp, err := c.Generate(context.Background(), GenerateRequest{
		Model:       "gpt-4o-mini",
		Messages:    []Message{{Role: "system", Content: "engineer"}, {Role: "user", Content: "hi"}},
		MaxTokens:   64,
		Temperature: 0.3,
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	txt, err := resp.Text()
	if err != nil || txt != "De BOD-piek is opvallend." {
		t.Fatalf("Text() = %q, %v", txt, err)
	}
	if resp.Usage.TotalTokens != 26 {
		t.Fatalf("usage = %+v", resp.Usage)
	}
	msgs, _ := captured["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages sent, got %v", captured["messages"])
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" {
		t.Fatalf("first message role = %v", first["role"])
	}
	if captured["model"] != "gpt-4o-mini" {
		t.Fatalf("model = %v", captured["model"])
	}
}

func TestOpenAIGenerateErrors(t *testing.T) {
	var hits int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{
			"message": "Incorrect API key provided", "type": "invalid_request_error", "code": "invalid_api_key",
		}})
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-wrong", srv.URL+"/", 2*time.Second, 1)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "gpt-4o-mini", Messages: []Message{{Role: "user", Content: "hi"}}})
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %T: %v", err, err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}

	_, err = NewOpenAIClient("", srv.URL+"/", time.Second, 1).Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}
