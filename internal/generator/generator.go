package generator

import (
	"context"
	"fmt"

	"github.com/ibeckermayer/icebreaker/internal/generator/providers"
	"github.com/ibeckermayer/icebreaker/internal/types"
)

// Provider defines the interface for LLM providers
type Provider interface {
	ID() types.ProviderID
	// Initialize prepares the provider to serve requests with credential.
	// It is safe to call more than once.
	Initialize(ctx context.Context, credential string) error
	// GenerateSuggestions returns at most three conversation starters.
	GenerateSuggestions(ctx context.Context, profileSummary string, postTexts []string, style types.Style, persona types.Persona) ([]string, error)
}

// Options carries per-provider tuning. The zero value is usable.
type Options struct {
	Claude   providers.AnthropicConfig
	Gemini   providers.GeminiConfig
	Recorder providers.Recorder
}

// New creates the provider implementation for id
func New(id types.ProviderID, opts Options) (Provider, error) {
	switch id {
	case types.ProviderClaude:
		cfg := opts.Claude
		if cfg.Recorder == nil {
			cfg.Recorder = opts.Recorder
		}
		return providers.NewAnthropicProvider(cfg), nil
	case types.ProviderGemini:
		cfg := opts.Gemini
		if cfg.Recorder == nil {
			cfg.Recorder = opts.Recorder
		}
		return providers.NewGeminiProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", id)
	}
}

// Generate runs req through provider and labels the results.
func Generate(ctx context.Context, provider Provider, req types.GenerationRequest) ([]types.Suggestion, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generation request: %w", err)
	}

	texts, err := provider.GenerateSuggestions(ctx, req.ProfileSummary, req.PostTexts, req.Style, req.Persona)
	if err != nil {
		return nil, err
	}

	return ToSuggestions(texts), nil
}

// ToSuggestions labels texts "Suggestion 1", "Suggestion 2", ... with full confidence.
func ToSuggestions(texts []string) []types.Suggestion {
	suggestions := make([]types.Suggestion, 0, len(texts))
	for i, text := range texts {
		suggestions = append(suggestions, types.Suggestion{
			Topic:      fmt.Sprintf("Suggestion %d", i+1),
			Text:       text,
			Confidence: 1.0,
		})
	}
	return suggestions
}
