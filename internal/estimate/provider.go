package estimate

import (
	"fmt"

	"github.com/proteinpath/protein-path-go/internal/config"
)

// NewProvider builds the provider named by cfg.Provider.
func NewProvider(cfg config.EstimationConfig) (Provider, error) {
	switch cfg.Provider {
	case "gemini", "":
		return NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, nil), nil
	case "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, nil), nil
	default:
		return nil, fmt.Errorf("unknown estimation provider %q", cfg.Provider)
	}
}
