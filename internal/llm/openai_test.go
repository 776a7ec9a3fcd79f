package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
)

func TestOpenAIEmbedder_Embed_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("Expected path /embeddings, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Model != "text-embedding-3-small" {
			t.Errorf("Unexpected model: %s", req.Model)
		}
		if len(req.Input) != 2 {
			t.Errorf("Expected 2 inputs, got %d", len(req.Input))
		}

		// Returned out of order on purpose
		resp := openai.EmbeddingResponse{
			Object: "list",
			Data: []openai.Embedding{
				{Object: "embedding", Embedding: []float32{0, 1}, Index: 1},
				{Object: "embedding", Embedding: []float32{1, 0}, Index: 0},
			},
			Model: "text-embedding-3-small",
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	embedder, err := NewOpenAIEmbedder(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "text-embedding-3-small",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create embedder: %v", err)
	}

	vectors, err := embedder.Embed(context.Background(), []string{"密码学", "格密码"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("Expected 2 vectors, got %d", len(vectors))
	}
	if vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Errorf("Vectors not placed by index: %v", vectors)
	}
}

func TestOpenAIEmbedder_Embed_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Invalid API key", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	embedder, err := NewOpenAIEmbedder(Config{APIKey: "bad-key", BaseURL: server.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Failed to create embedder: %v", err)
	}

	if _, err := embedder.Embed(context.Background(), []string{"x"}); err == nil {
		t.Error("Expected error, got nil")
	}
}

func TestNewOpenAIEmbedder_MissingKey(t *testing.T) {
	if _, err := NewOpenAIEmbedder(Config{}); err == nil {
		t.Error("Expected error for missing API key")
	}
}

func TestOpenAIEmbedder_Embed_Empty(t *testing.T) {
	embedder, err := NewOpenAIEmbedder(Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("Failed to create embedder: %v", err)
	}
	vectors, err := embedder.Embed(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Errorf("Expected nil result for empty input, got %v, %v", vectors, err)
	}
}
