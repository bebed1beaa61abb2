package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaProvider_ProposeOutline_Success(t *testing.T) {
	// Mock server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify request
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}

		var apiReq ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&apiReq); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		if apiReq.System != outlineSystemPrompt {
			t.Errorf("Expected outline system prompt, got %q", apiReq.System)
		}
		if apiReq.Stream {
			t.Error("Expected stream to be disabled")
		}

		// Return success response
		resp := ollamaResponse{
			Model:           "llama3.1",
			Response:        `{"category": "Access Control", "groups": [{"label": "Authentication", "members": [1, 2]}]}`,
			Done:            true,
			PromptEvalCount: 10,
			EvalCount:       20,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	// Create provider
	config := Config{
		BaseURL:       server.URL,
		Model:         "llama3.1",
		Timeout:       5,
		StrictOutline: true,
	}
	provider, err := NewOllamaProvider(config)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	req := OutlineRequest{Requirements: outlineRequirements()}

	resp, err := provider.ProposeOutline(context.Background(), req)
	if err != nil {
		t.Fatalf("ProposeOutline failed: %v", err)
	}

	if resp.Outline.Category != "Access Control" {
		t.Errorf("Unexpected category: %s", resp.Outline.Category)
	}
	if len(resp.Outline.Groups) != 1 {
		t.Fatalf("Expected 1 group, got %d", len(resp.Outline.Groups))
	}
	if got := resp.Outline.Groups[0].Members; len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("Unexpected members: %v", got)
	}
	if resp.TokensUsed != 30 {
		t.Errorf("Unexpected token usage: %d", resp.TokensUsed)
	}
}

func TestOllamaProvider_ProposeOutline_TokenEstimate(t *testing.T) {
	// Some local models report zero token counts; the provider falls back
	// to a character-based estimate
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := ollamaResponse{
			Model:    "llama3.1",
			Response: `{"groups": [{"label": "Authentication", "members": [1]}]}`,
			Done:     true,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	config := Config{
		BaseURL: server.URL,
		Model:   "llama3.1",
		Timeout: 5,
	}
	provider, err := NewOllamaProvider(config)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	req := OutlineRequest{Requirements: outlineRequirements()}

	resp, err := provider.ProposeOutline(context.Background(), req)
	if err != nil {
		t.Fatalf("ProposeOutline failed: %v", err)
	}
	if resp.TokensUsed == 0 {
		t.Error("Expected estimated token count, got 0")
	}
}

func TestOllamaProvider_ProposeOutline_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "Internal Server Error"}`))
	}))
	defer server.Close()

	config := Config{
		BaseURL: server.URL,
		Model:   "llama3.1",
		Timeout: 5,
	}
	provider, err := NewOllamaProvider(config)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	req := OutlineRequest{Requirements: outlineRequirements()}

	_, err = provider.ProposeOutline(context.Background(), req)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "Internal Server Error") {
		t.Errorf("Expected error message to contain 'Internal Server Error', got %v", err)
	}
}

func TestOllamaProvider_ProposeOutline_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{malformed json`))
	}))
	defer server.Close()

	config := Config{
		BaseURL: server.URL,
		Model:   "llama3.1",
		Timeout: 5,
	}
	provider, err := NewOllamaProvider(config)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	req := OutlineRequest{Requirements: outlineRequirements()}

	_, err = provider.ProposeOutline(context.Background(), req)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	config := Config{
		BaseURL: server.URL,
	}
	provider, err := NewOllamaProvider(config)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	// Test failure
	server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false on error")
	}
}

func TestOllamaProvider_ProposeOutline_NoModel(t *testing.T) {
	config := Config{
		BaseURL: "http://localhost:11434",
		Model:   "", // No model
	}
	provider, err := NewOllamaProvider(config)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	req := OutlineRequest{Requirements: outlineRequirements()}

	_, err = provider.ProposeOutline(context.Background(), req)
	if err == nil {
		t.Fatal("Expected error when no model provided, got nil")
	}
	if !strings.Contains(err.Error(), "must be specified") {
		t.Errorf("Expected error about missing model, got %v", err)
	}
}
