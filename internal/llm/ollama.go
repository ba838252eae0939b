package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaProvider implements Classifier for local Ollama models
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
	config     Config
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	System  string        `json:"system,omitempty"`
	Format  string        `json:"format,omitempty"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func ollamaAPIError(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	return e.Error
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		// local models load slowly on first call
		httpClient: newHTTPClient(config, 60*time.Second),
		config:     config,
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Ping lists installed models
func (p *OllamaProvider) Ping(ctx context.Context) error {
	if err := doJSON(ctx, p.httpClient, http.MethodGet, p.baseURL+"/api/tags", nil, nil, nil, ollamaAPIError); err != nil {
		return fmt.Errorf("ollama availability check failed (%s): %w", p.baseURL, err)
	}
	return nil
}

// Classify asks a local model for a yes/no verdict in JSON mode
func (p *OllamaProvider) Classify(ctx context.Context, text, question string) (Label, error) {
	if p.config.Model == "" {
		return Label{}, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}

	maxTokens := p.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 60
	}

	req := ollamaRequest{
		Model:   p.config.Model,
		Prompt:  BuildPrompt(text, question),
		System:  systemPrompt,
		Format:  "json",
		Options: ollamaOptions{NumPredict: maxTokens},
	}

	var resp ollamaResponse
	if err := doJSON(ctx, p.httpClient, http.MethodPost, p.baseURL+"/api/generate", nil, req, &resp, ollamaAPIError); err != nil {
		return Label{}, fmt.Errorf("ollama API error: %w", err)
	}
	return ParseLabel(resp.Response)
}
