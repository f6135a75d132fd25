package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/ibeckermayer/icebreaker/internal/types"
)

const (
	// DefaultClaudeModel is used when no model is configured.
	DefaultClaudeModel  = "claude-3-5-sonnet-20241022"
	defaultClaudeTokens = 1000
	defaultClaudeTemp   = 0.8
)

// AnthropicConfig tunes the Claude provider. Zero values use the defaults.
type AnthropicConfig struct {
	Model       string
	MaxTokens   int
	Temperature *float64
	BaseURL     string
	HTTPClient  *http.Client
	Recorder    Recorder
}

type anthropicMessages interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicProvider generates suggestions with Anthropic's Claude API
type AnthropicProvider struct {
	cfg AnthropicConfig

	mu   sync.RWMutex
	msgs anthropicMessages
}

// NewAnthropicProvider creates an uninitialized Claude provider
func NewAnthropicProvider(cfg AnthropicConfig) *AnthropicProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultClaudeModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultClaudeTokens
	}
	if cfg.Temperature == nil {
		t := defaultClaudeTemp
		cfg.Temperature = &t
	}
	return &AnthropicProvider{cfg: cfg}
}

// ID reports types.ProviderClaude.
func (c *AnthropicProvider) ID() types.ProviderID {
	return types.ProviderClaude
}

// Initialize builds the API client for apiKey. Calling it again replaces the client.
func (c *AnthropicProvider) Initialize(_ context.Context, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return ErrEmptyCredential
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if c.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.cfg.BaseURL))
	}
	if c.cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(c.cfg.HTTPClient))
	}
	client := anthropic.NewClient(opts...)

	c.mu.Lock()
	c.msgs = &client.Messages
	c.mu.Unlock()
	return nil
}

// GenerateSuggestions asks Claude for conversation starters.
// API errors are wrapped, never retried.
func (c *AnthropicProvider) GenerateSuggestions(ctx context.Context, profileSummary string, postTexts []string, style types.Style, persona types.Persona) ([]string, error) {
	c.mu.RLock()
	msgs := c.msgs
	c.mu.RUnlock()
	if msgs == nil {
		return nil, ErrUninitialized
	}
	if err := validateTone(style, persona); err != nil {
		return nil, err
	}

	prompt := BuildPrompt(profileSummary, postTexts, style, persona)

	message, err := msgs.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.cfg.Model),
		MaxTokens:   int64(c.cfg.MaxTokens),
		Temperature: param.NewOpt(*c.cfg.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call Claude API: %w", err)
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	record(ctx, c.cfg.Recorder, types.ProviderClaude, c.cfg.Model, prompt, responseText)

	suggestions := ParseSuggestions(responseText, true)
	if len(suggestions) == 0 {
		return nil, ErrEmptyResponse
	}
	return suggestions, nil
}
