package llm

import (
	"context"
	"fmt"
	"strings"

	"lenslingua/internal/config"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Factory creates LLM clients with consistent logic
type Factory struct {
	OpenaiAPIKey             string
	OpenaiBaseURL            string
	OpenaiTranscriptionModel string
	OpenRouterReferrer       string
	OpenRouterTitle          string
	GeminiAPIKey             string
	GeminiBaseURL            string
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		OpenaiAPIKey:             cfg.OpenAIAPIKey,
		OpenaiBaseURL:            cfg.OpenAIBaseURL,
		OpenaiTranscriptionModel: cfg.OpenAITranscriptionModel,
		OpenRouterReferrer:       cfg.OpenRouterReferrer,
		OpenRouterTitle:          cfg.OpenRouterTitle,
		GeminiAPIKey:             cfg.GeminiAPIKey,
		GeminiBaseURL:            cfg.GeminiBaseURL,
	}
}

func (f *Factory) CreateClient(ctx context.Context, provider, model string) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderOpenAI:
		return NewOpenAI(OpenAIOptions{
			APIKey:             f.OpenaiAPIKey,
			BaseURL:            f.OpenaiBaseURL,
			Model:              model,
			TranscriptionModel: f.OpenaiTranscriptionModel,
			Referrer:           f.OpenRouterReferrer,
			Title:              f.OpenRouterTitle,
		}), nil
	case ProviderGemini:
		return NewGemini(ctx, f.GeminiAPIKey, f.GeminiBaseURL, model)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
