package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestGeminiGenerateSuccess(t *testing.T) {
	var got geminiRequest
	var gotKey, gotPath string
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"role": "model", "parts": []any{
					map[string]any{"text": "Key observations: "},
					map[string]any{"text": "none."},
				}},
			}},
			"usageMetadata": map[string]any{"promptTokenCount": 12, "candidatesTokenCount": 3, "totalTokenCount": 15},
			"responseId":    "resp-1",
		})
	}))
	defer srv.Close()

	c := NewGeminiClientWithBaseURL("k-123", 2*time.Second, 1, 0, 0, srv.URL)
	resp, err := c.Generate(context.Background(), GenerateRequest{
		Model:       "gemini-2.5-pro-exp-03-25",
		Messages:    []Message{{Role: "system", Content: "be brief"}, {Role: "user", Content: "Analyze this dataset"}},
		MaxTokens:   1000,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "Key observations: none." {
		t.Fatalf("unexpected text %q", resp.Text())
	}
	if resp.Usage.TotalTokens != 15 || resp.RequestID != "resp-1" {
		t.Fatalf("unexpected usage/id: %+v", resp)
	}
	if gotKey != "k-123" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
	if gotPath != "/models/gemini-2.5-pro-exp-03-25:generateContent" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if len(got.Contents) != 1 || got.Contents[0].Role != "user" || got.Contents[0].Parts[0].Text != "Analyze this dataset" {
		t.Fatalf("unexpected contents: %+v", got.Contents)
	}
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "be brief" {
		t.Fatalf("expected system instruction, got %+v", got.SystemInstruction)
	}
	if got.GenerationConfig == nil || got.GenerationConfig.MaxOutputTokens != 1000 || got.GenerationConfig.Temperature == nil || *got.GenerationConfig.Temperature != 0.7 {
		t.Fatalf("unexpected generation config: %+v", got.GenerationConfig)
	}
}

func TestGeminiGenerationConfigCanBeDisabled(t *testing.T) {
	var raw map[string]any
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": "ok"}}}}},
		})
	}))
	defer srv.Close()

	rt, ok := GetRuntime(ProviderGemini, RuntimeConfig{APIKey: "k", BaseURL: srv.URL, ApplyGenerationConfig: false})
	if !ok {
		t.Fatalf("gemini runtime not registered")
	}
	if _, err := rt.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 1000, Temperature: 0.7}); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if _, present := raw["generationConfig"]; present {
		t.Fatalf("generationConfig must be omitted when disabled: %v", raw)
	}
}

func TestGeminiMissingKey(t *testing.T) {
	c := NewGeminiClient("", 0, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	if err == nil || err.Error() != "GEMINI_API_KEY is missing" {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestGeminiErrorClassification(t *testing.T) {
	cases := []struct {
		status int
		body   map[string]any
		kind   string
	}{
		{http.StatusBadRequest, map[string]any{"error": map[string]any{"code": 400, "message": "API key not valid. Please pass a valid API key.", "status": "INVALID_ARGUMENT"}}, "auth"},
		{http.StatusNotFound, map[string]any{"error": map[string]any{"code": 404, "message": "models/x is not found", "status": "NOT_FOUND"}}, "model_not_found"},
		{http.StatusTooManyRequests, map[string]any{"error": map[string]any{"code": 429, "message": "You exceeded your current quota", "status": "RESOURCE_EXHAUSTED"}}, "quota"},
		{http.StatusInternalServerError, map[string]any{"error": map[string]any{"code": 500, "message": "internal", "status": "INTERNAL"}}, "server"},
	}
	for _, tc := range cases {
		srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_ = json.NewEncoder(w).Encode(tc.body)
		}))
		c := NewGeminiClientWithBaseURL("k", time.Second, 1, 0, 0, srv.URL)
		_, err := c.Generate(context.Background(), GenerateRequest{Model: "x", Messages: []Message{{Role: "user", Content: "hi"}}})
		srv.Close()
		if got := Kind(err); got != tc.kind {
			t.Fatalf("status %d: expected kind %s, got %s (%v)", tc.status, tc.kind, got, err)
		}
		if StatusCode(err) != tc.status {
			t.Fatalf("status %d: StatusCode returned %d", tc.status, StatusCode(err))
		}
	}
}

func TestGeminiBlockedPrompt(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"promptFeedback": map[string]any{"blockReason": "SAFETY"}})
	}))
	defer srv.Close()
	c := NewGeminiClientWithBaseURL("k", time.Second, 1, 0, 0, srv.URL)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "x", Messages: []Message{{Role: "user", Content: "hi"}}})
	if err == nil || !strings.Contains(err.Error(), "SAFETY") {
		t.Fatalf("expected blocked prompt error, got %v", err)
	}
	if errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected cancellation")
	}
}

func TestProvidersRegistered(t *testing.T) {
	got := strings.Join(Providers(), ",")
	if got != "gemini,ollama,openrouter" {
		t.Fatalf("unexpected providers %q", got)
	}
}
