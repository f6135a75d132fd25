package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/ibeckermayer/icebreaker/internal/types"
)

const (
	// GeminiBaseURL is Gemini's OpenAI-compatible endpoint.
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	// DefaultGeminiModel is used when no model is configured.
	DefaultGeminiModel  = "gemini-1.5-flash"
	defaultGeminiTokens = 1000
	defaultGeminiTemp   = 0.9
)

// GeminiConfig tunes the Gemini provider. Zero values use the defaults.
type GeminiConfig struct {
	Model       string
	MaxTokens   int
	Temperature *float64
	BaseURL     string
	HTTPClient  *http.Client
	Recorder    Recorder
}

type openaiChatCompletions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// GeminiProvider generates suggestions with Google's Gemini models
type GeminiProvider struct {
	cfg GeminiConfig

	mu          sync.RWMutex
	completions openaiChatCompletions
}

// NewGeminiProvider creates an uninitialized Gemini provider
func NewGeminiProvider(cfg GeminiConfig) *GeminiProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultGeminiTokens
	}
	if cfg.Temperature == nil {
		t := defaultGeminiTemp
		cfg.Temperature = &t
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = GeminiBaseURL
	}
	return &GeminiProvider{cfg: cfg}
}

// ID reports types.ProviderGemini.
func (g *GeminiProvider) ID() types.ProviderID {
	return types.ProviderGemini
}

// Initialize builds the API client for apiKey. Calling it again replaces the client.
func (g *GeminiProvider) Initialize(_ context.Context, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return ErrEmptyCredential
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(g.cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if g.cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(g.cfg.HTTPClient))
	}
	client := openai.NewClient(opts...)

	g.mu.Lock()
	g.completions = &client.Chat.Completions
	g.mu.Unlock()
	return nil
}

// GenerateSuggestions asks Gemini for conversation starters.
// API errors are wrapped, never retried.
func (g *GeminiProvider) GenerateSuggestions(ctx context.Context, profileSummary string, postTexts []string, style types.Style, persona types.Persona) ([]string, error) {
	g.mu.RLock()
	completions := g.completions
	g.mu.RUnlock()
	if completions == nil {
		return nil, ErrUninitialized
	}
	if err := validateTone(style, persona); err != nil {
		return nil, err
	}

	prompt := BuildPrompt(profileSummary, postTexts, style, persona)

	completion, err := completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(g.cfg.Model),
		MaxTokens:   openai.Int(int64(g.cfg.MaxTokens)),
		Temperature: openai.Float(*g.cfg.Temperature),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call Gemini API: %w", err)
	}

	var responseText string
	if len(completion.Choices) > 0 {
		responseText = completion.Choices[0].Message.Content
	}

	record(ctx, g.cfg.Recorder, types.ProviderGemini, g.cfg.Model, prompt, responseText)

	suggestions := ParseSuggestions(responseText, false)
	if len(suggestions) == 0 {
		return nil, ErrEmptyResponse
	}
	return suggestions, nil
}
