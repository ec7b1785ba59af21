// Package textgen talks to the external chat-completion service that drafts
// ticket suggestions.
package textgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/spec-kit/helpdesk/internal/config"
)

const systemPrompt = "You are an assistant for a customer support help desk. Answer concisely."

const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

var defaultBaseURLs = map[string]string{
	ProviderOllama:    "http://localhost:11434",
	ProviderOpenAI:    "https://api.openai.com",
	ProviderAnthropic: "https://api.anthropic.com",
}

var defaultModels = map[string]string{
	ProviderOllama:    "llama3.2",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-latest",
}

// Client sends single-turn prompts to a chat-completion provider.
type Client struct {
	provider string
	baseURL  string
	apiKey   string
	model    string
	http     *resty.Client
}

// NewClient builds a client from configuration. It returns nil when no
// provider is configured.
func NewClient(cfg config.TextgenConfig) *Client {
	if !cfg.Enabled() {
		return nil
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURLs[cfg.Provider]
	}
	model := cfg.Model
	if model == "" {
		model = defaultModels[cfg.Provider]
	}
	// Generation is best-effort; a failed call surfaces to the caller unretried.
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout()).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return &Client{
		provider: cfg.Provider,
		baseURL:  baseURL,
		apiKey:   cfg.APIKey,
		model:    model,
		http:     httpClient,
	}
}

// Model names the model that produced the text.
func (c *Client) Model() string {
	return c.model
}

// Generate returns the provider's completion for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	switch c.provider {
	case ProviderOllama:
		return c.chatOllama(ctx, prompt)
	case ProviderOpenAI:
		return c.chatOpenAI(ctx, prompt)
	case ProviderAnthropic:
		return c.chatAnthropic(ctx, prompt)
	default:
		return "", fmt.Errorf("unknown provider: %s", c.provider)
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *Client) chatOllama(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model": c.model,
		"messages": []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		"stream": false,
	}

	var result struct {
		Message chatMessage `json:"message"`
	}
	if err := c.post(ctx, "/api/chat", reqBody, nil, &result); err != nil {
		return "", err
	}
	return nonEmpty(result.Message.Content)
}

func (c *Client) chatOpenAI(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":      c.model,
		"max_tokens": 1024,
		"messages": []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	var result struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := c.post(ctx, "/v1/chat/completions", reqBody, headers, &result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return nonEmpty(result.Choices[0].Message.Content)
}

func (c *Client) chatAnthropic(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":      c.model,
		"max_tokens": 1024,
		"system":     systemPrompt,
		"messages":   []chatMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := c.post(ctx, "/v1/messages", reqBody, headers, &result); err != nil {
		return "", err
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	return nonEmpty(result.Content[0].Text)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, headers map[string]string, out interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(body).
		SetResult(out).
		ForceContentType("application/json").
		Post(path)
	if err != nil {
		return fmt.Errorf("%s request: %w", c.provider, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s API error %d: %s", c.provider, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

func nonEmpty(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty completion")
	}
	return s, nil
}
