package factory

import (
	"context"
	"fmt"

	"solar-parcel-be/pkg/llm"
	"solar-parcel-be/pkg/llm/gemini"
	"solar-parcel-be/pkg/llm/ollama"
	"solar-parcel-be/pkg/llm/openai"
)

type Config struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

func NewLLMProvider(ctx context.Context, cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "openai", "":
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("openai provider needs LLM_API_KEY or LLM_BASE_URL")
		}
		model := cfg.Model
		if model == "" {
			model = "gpt-4.1"
		}
		return openai.NewProvider(cfg.APIKey, cfg.BaseURL, model), nil
	case "gemini":
		return gemini.NewProvider(ctx, cfg.APIKey, cfg.Model)
	case "ollama":
		return ollama.NewOllamaProvider(cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
