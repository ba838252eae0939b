// Package llm implements the optional content classifier used to break ties
// between candidate directory links and to confirm low-signal parish names.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Classifier answers a yes/no question about a short text
type Classifier interface {
	// Name returns the provider name
	Name() string

	// Classify labels text against question. Label is "yes" or "no".
	Classify(ctx context.Context, text, question string) (Label, error)

	// Ping checks that the provider is configured and reachable
	Ping(ctx context.Context) error
}

// Label is a classifier verdict
type Label struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Yes reports a positive verdict at or above min confidence
func (l Label) Yes(min float64) bool {
	return l.Label == LabelYes && l.Confidence >= min
}

const (
	LabelYes = "yes"
	LabelNo  = "no"
)

// maxInputChars bounds the text sent per request
const maxInputChars = 4000

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for the verdict; a label needs very few
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   30,
		MaxTokens: 60,
	}
}

const systemPrompt = "You classify short snippets of church and diocese web pages. Reply only with JSON."

// BuildPrompt constructs the classification prompt
func BuildPrompt(text, question string) string {
	text = strings.TrimSpace(text)
	if len(text) > maxInputChars {
		text = text[:maxInputChars]
	}
	return fmt.Sprintf(`Question: %s

Text:
"""
%s
"""

Answer with a single JSON object and nothing else:
{"label": "yes" or "no", "confidence": number between 0 and 1}`, question, text)
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*?\}`)

// ParseLabel reads a model reply. JSON is preferred; a bare leading
// yes/no is accepted at confidence 0.5.
func ParseLabel(reply string) (Label, error) {
	reply = strings.TrimSpace(reply)

	if raw := jsonObjectPattern.FindString(reply); raw != "" {
		var l Label
		if err := json.Unmarshal([]byte(raw), &l); err == nil {
			l.Label = strings.ToLower(strings.TrimSpace(l.Label))
			if l.Label == LabelYes || l.Label == LabelNo {
				l.Confidence = clamp01(l.Confidence)
				return l, nil
			}
		}
	}

	fields := strings.Fields(strings.ToLower(reply))
	if len(fields) > 0 {
		switch strings.Trim(fields[0], `.,!"'`) {
		case LabelYes:
			return Label{Label: LabelYes, Confidence: 0.5}, nil
		case LabelNo:
			return Label{Label: LabelNo, Confidence: 0.5}, nil
		}
	}

	return Label{}, fmt.Errorf("unparseable classifier reply: %q", truncate(reply, 80))
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
