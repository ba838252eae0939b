package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
	anthropicModel   = "claude-3-5-haiku-20241022"
)

// AnthropicProvider implements Classifier on the Messages API
type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	config     Config
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Content    []anthropicContent `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason"`
}

// text returns the first text block
func (r *anthropicResponse) text() (string, bool) {
	for _, c := range r.Content {
		if c.Type == "" || c.Type == "text" {
			return c.Text, true
		}
	}
	return "", false
}

func anthropicAPIError(body []byte) string {
	var e struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil || e.Error.Message == "" {
		return ""
	}
	return e.Error.Type + " - " + e.Error.Message
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}

	return &AnthropicProvider{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: newHTTPClient(config, 30*time.Second),
		config:     config,
	}, nil
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Ping makes a minimal completion request
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	req := anthropicRequest{
		Model:     p.model(),
		MaxTokens: 5,
		Messages:  []anthropicMessage{{Role: "user", Content: "Hi"}},
	}
	if _, err := p.messages(ctx, req); err != nil {
		return fmt.Errorf("Anthropic API check failed: %w", err)
	}
	return nil
}

// Classify asks the Messages API for a yes/no verdict
func (p *AnthropicProvider) Classify(ctx context.Context, text, question string) (Label, error) {
	maxTokens := p.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 60
	}

	resp, err := p.messages(ctx, anthropicRequest{
		Model:     p.model(),
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages:  []anthropicMessage{{Role: "user", Content: BuildPrompt(text, question)}},
	})
	if err != nil {
		return Label{}, fmt.Errorf("Anthropic API error: %w", err)
	}

	reply, ok := resp.text()
	if !ok {
		return Label{}, fmt.Errorf("no content in Anthropic response")
	}
	return ParseLabel(reply)
}

func (p *AnthropicProvider) model() string {
	if p.config.Model != "" {
		return p.config.Model
	}
	return anthropicModel
}

func (p *AnthropicProvider) messages(ctx context.Context, req anthropicRequest) (*anthropicResponse, error) {
	header := http.Header{}
	header.Set("x-api-key", p.apiKey)
	header.Set("anthropic-version", anthropicVersion)

	var resp anthropicResponse
	if err := doJSON(ctx, p.httpClient, http.MethodPost, p.baseURL+"/v1/messages", header, req, &resp, anthropicAPIError); err != nil {
		return nil, err
	}
	return &resp, nil
}
