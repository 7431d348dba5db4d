package image

import (
	"fmt"
	"strings"

	"thumbgen/internal/providers/genai"
	"thumbgen/internal/providers/qwen"
)

// Config selects and configures the base image provider.
type Config struct {
	Provider string
	Gemini   genai.Options
	Qwen     qwen.Options
}

// New builds the configured generator. Missing credentials are an error;
// the synthetic provider has to be chosen explicitly.
func New(cfg Config) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderGemini, "":
		client, err := genai.NewClient(cfg.Gemini)
		if err != nil {
			return nil, err
		}
		if !client.HasCredentials() {
			return nil, fmt.Errorf("gemini image provider: %w", genai.ErrMissingAPIKey)
		}
		return NewGeminiGenerator(client), nil
	case ProviderQwen:
		client, err := qwen.NewClient(cfg.Qwen)
		if err != nil {
			return nil, err
		}
		if !client.HasCredentials() {
			return nil, fmt.Errorf("qwen image provider: %w", qwen.ErrMissingAPIKey)
		}
		return NewQwenGenerator(client), nil
	case ProviderSynthetic:
		return NewSyntheticGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown image provider %q", cfg.Provider)
	}
}
