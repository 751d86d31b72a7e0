// Package generation provides text-generation collaborators behind the
// Generator port: an OpenAI-compatible HTTP client and a local
// fallback used when no model is configured.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// OpenAIGenerator calls any OpenAI-compatible chat completions
// endpoint (OpenAI, DeepSeek, Ollama, vLLM).
type OpenAIGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewOpenAIGenerator creates a generator against the OpenAI API. The
// key is read from the named environment variable.
func NewOpenAIGenerator(apiKeyEnv, model string) (*OpenAIGenerator, error) {
	return NewCompatibleGenerator(apiKeyEnv, model, "https://api.openai.com/v1")
}

// NewOllamaGenerator creates a generator against a local Ollama
// server, which needs no API key.
func NewOllamaGenerator(model, baseURL string) (*OpenAIGenerator, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	return &OpenAIGenerator{
		apiKey:  "ollama",
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// NewCompatibleGenerator creates a generator against any
// OpenAI-compatible endpoint.
func NewCompatibleGenerator(apiKeyEnv, model, baseURL string) (*OpenAIGenerator, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found: set %s environment variable", apiKeyEnv)
	}
	return &OpenAIGenerator{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Generate produces text for the prompt via a single-turn chat
// completion.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model:       g.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.7,
		MaxTokens:   2000,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	return parsed.Choices[0].Message.Content, nil
}

// ModelName returns the name of the model.
func (g *OpenAIGenerator) ModelName() string {
	return g.model
}
