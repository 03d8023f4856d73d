package ai

import (
	"fmt"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// FactoryConfig selects and configures the provider implementation. The
// choice is made once at process start; business logic only ever sees the
// Provider interface.
type FactoryConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// NewProvider returns the Provider implementation named by the configuration.
func NewProvider(cfg FactoryConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Logger:      cfg.Logger,
		})
	case "azure":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("azure provider requires a base url")
		}
		config := openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
		return newOpenAIProviderWithClient(openai.NewClientWithConfig(config), OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Logger:      cfg.Logger,
		})
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
