package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/parishscope/internal/model"
)

// NewClassifier creates a classifier based on configuration. A nil
// classifier with a nil error means classification is disabled.
func NewClassifier(config Config) (Classifier, error) {
	var (
		c   Classifier
		err error
	)

	switch strings.ToLower(config.Provider) {
	case "openai":
		c, err = newOrNil(NewOpenAIProvider(config))

	case "anthropic", "claude":
		c, err = newOrNil(NewAnthropicProvider(config))

	case "ollama":
		c, err = newOrNil(NewOllamaProvider(config))

	case "":
		// No provider configured
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown classifier provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
	return c, err
}

// newOrNil keeps a failed constructor from yielding a non-nil interface
func newOrNil[T Classifier](p T, err error) (Classifier, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ConfigFromModel converts model.ClassifierConfig to llm.Config
func ConfigFromModel(modelConfig model.ClassifierConfig, http model.HTTPConfig) Config {
	cfg := DefaultConfig()
	cfg.Provider = modelConfig.Provider
	cfg.Model = modelConfig.Model
	cfg.APIKey = modelConfig.APIKey
	cfg.BaseURL = modelConfig.BaseURL
	if modelConfig.Timeout > 0 {
		cfg.Timeout = modelConfig.Timeout
	}
	cfg.HTTPProxy = http.HTTPProxy
	cfg.HTTPSProxy = http.HTTPSProxy
	cfg.NoProxy = http.NoProxy
	return cfg
}
