package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/docqa/internal/core/domain"
)

func TestCompleteSendsChatRequestWithAuth(t *testing.T) {
	var captured map[string]any
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		authHeader = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" the answer "}}]}`))
	}))
	defer server.Close()

	model := NewLanguageModel(New(server.URL, "sk-test", "gpt-x", "embed-x", nil))
	text, err := model.Complete(context.Background(), "question", domain.CompletionOptions{
		System:     "analyst",
		MaxTokens:  1500,
		JSONOutput: true,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "the answer" {
		t.Fatalf("expected trimmed content, got %q", text)
	}
	if authHeader != "Bearer sk-test" {
		t.Fatalf("expected bearer auth, got %q", authHeader)
	}

	messages := captured["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system + user messages, got %v", messages)
	}
	first := messages[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "analyst" {
		t.Fatalf("unexpected system message: %v", first)
	}
	format := captured["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", format)
	}
	if captured["max_tokens"] != float64(1500) {
		t.Fatalf("expected max_tokens passthrough, got %v", captured["max_tokens"])
	}
}

func TestCompleteFailsOnEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	model := NewLanguageModel(New(server.URL, "", "gpt-x", "embed-x", nil))
	if _, err := model.Complete(context.Background(), "q", domain.CompletionOptions{}); err == nil {
		t.Fatalf("expected error on empty choices")
	}
}

func TestEmbedOrdersVectorsByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"data":[
			{"index":1,"embedding":[0.3,0.4]},
			{"index":0,"embedding":[0.1,0.2]}
		]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "", "gpt-x", "embed-x", nil))
	vectors, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || vectors[0][0] != 0.1 || vectors[1][0] != 0.3 {
		t.Fatalf("expected index-ordered vectors, got %v", vectors)
	}
}

func TestEmbedMarksRetryableStatusTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "", "gpt-x", "embed-x", nil))
	_, err := embedder.Embed(context.Background(), []string{"a"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary classification, got %v", err)
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected body in error, got %v", err)
	}
}
