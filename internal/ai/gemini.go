package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GeminiBaseURL is the public Generative Language API root.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient calls the Gemini generateContent endpoint.
type GeminiClient struct {
	transport
	apiKey  string
	baseURL string
	// ApplyGenerationConfig controls whether MaxTokens and Temperature are sent
	// as generationConfig. When false the provider defaults apply.
	ApplyGenerationConfig bool
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	ResponseID string `json:"responseId"`
}

// NewGeminiClient returns a client for the public endpoint.
func NewGeminiClient(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *GeminiClient {
	return &GeminiClient{
		transport:             newTransport(httpTimeout, retryMax, baseDelay, maxDelay),
		apiKey:                apiKey,
		baseURL:               GeminiBaseURL,
		ApplyGenerationConfig: true,
	}
}

// NewGeminiClientWithBaseURL allows injecting a custom base URL (used in tests).
func NewGeminiClientWithBaseURL(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration, baseURL string) *GeminiClient {
	c := NewGeminiClient(apiKey, httpTimeout, retryMax, baseDelay, maxDelay)
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// Generate maps the chat-style request onto generateContent. System messages
// become the system instruction; assistant turns use the "model" role.
func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is missing")
	}
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}

	var greq geminiRequest
	var system []geminiPart
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, geminiPart{Text: m.Content})
		case "assistant", "model":
			greq.Contents = append(greq.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			greq.Contents = append(greq.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	if len(greq.Contents) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	if len(system) > 0 {
		greq.SystemInstruction = &geminiContent{Parts: system}
	}
	if c.ApplyGenerationConfig && (req.MaxTokens > 0 || req.Temperature > 0) {
		gc := &geminiGenerationConfig{MaxOutputTokens: req.MaxTokens}
		if req.Temperature > 0 {
			temp := req.Temperature
			gc.Temperature = &temp
		}
		greq.GenerationConfig = gc
	}

	payload, err := json.Marshal(greq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(strings.TrimPrefix(req.Model, "models/")))
	h := http.Header{}
	h.Set("x-goog-api-key", c.apiKey)

	var gresp geminiResponse
	rid, err := c.post(ctx, endpoint, h, payload, &gresp)
	if err != nil {
		return nil, err
	}
	if len(gresp.Candidates) == 0 {
		if gresp.PromptFeedback != nil && gresp.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("prompt blocked: %s", gresp.PromptFeedback.BlockReason)
		}
		return nil, errors.New("empty response: no candidates returned")
	}
	var text strings.Builder
	for _, p := range gresp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if rid == "" {
		rid = gresp.ResponseID
	}
	return &GenerateResponse{
		ID:      gresp.ResponseID,
		Choices: []Choice{{Message: Message{Role: "assistant", Content: text.String()}}},
		Usage: Usage{
			PromptTokens:     gresp.UsageMetadata.PromptTokenCount,
			CompletionTokens: gresp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      gresp.UsageMetadata.TotalTokenCount,
		},
		RequestID: rid,
	}, nil
}
