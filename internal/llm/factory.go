package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/facultyscope/internal/model"
)

// NewEmbedder creates an embedding provider based on configuration
func NewEmbedder(config Config) (Embedder, error) {
	switch strings.ToLower(config.Provider) {
	case "openai", "":
		return NewOpenAIEmbedder(config)

	case "ollama":
		return NewOllamaEmbedder(config)

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, ollama)", config.Provider)
	}
}

// ConfigFromModel converts the relevance and HTTP settings to llm.Config.
// A relevance model written as "ollama/<name>" selects the Ollama provider.
func ConfigFromModel(rel model.RelevanceConfig, httpCfg model.HTTPConfig) Config {
	cfg := Config{
		Provider:   "openai",
		Model:      rel.Model,
		APIKey:     rel.APIKey,
		BaseURL:    rel.BaseURL,
		Timeout:    rel.Timeout,
		HTTPProxy:  httpCfg.HTTPProxy,
		HTTPSProxy: httpCfg.HTTPSProxy,
		NoProxy:    httpCfg.NoProxy,
	}

	if name, ok := strings.CutPrefix(rel.Model, "ollama/"); ok {
		cfg.Provider = "ollama"
		cfg.Model = name
		if cfg.BaseURL == "" {
			cfg.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}

	if cfg.APIKey == "" && cfg.Provider == "openai" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg
}
