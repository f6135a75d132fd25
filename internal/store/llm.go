package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ibeckermayer/icebreaker/internal/types"
)

// LLMExchange represents a prompt/response pair for caching
type LLMExchange struct {
	Timestamp time.Time        `json:"timestamp"`
	Provider  types.ProviderID `json:"provider"`
	Model     string           `json:"model"`
	Prompt    string           `json:"prompt"`
	Response  string           `json:"response"`
}

// ExchangeLog writes LLM exchanges to timestamped JSON files in a directory,
// typically <cache>/llm.
type ExchangeLog struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// NewExchangeLog creates a log writing under dir
func NewExchangeLog(dir string, logger *zap.Logger) *ExchangeLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExchangeLog{dir: dir, logger: logger, now: time.Now}
}

// Dir is where exchanges are written.
func (l *ExchangeLog) Dir() string {
	return l.dir
}

// RecordExchange saves one exchange. Failures are logged and returned.
func (l *ExchangeLog) RecordExchange(_ context.Context, provider types.ProviderID, model, prompt, response string) error {
	path, err := l.Save(LLMExchange{
		Timestamp: l.now(),
		Provider:  provider,
		Model:     model,
		Prompt:    prompt,
		Response:  response,
	})
	if err != nil {
		l.logger.Warn("Failed to cache LLM exchange", zap.Error(err))
		return err
	}
	l.logger.Debug("Cached LLM exchange", zap.String("path", path))
	return nil
}

// Save serializes an LLM exchange to JSON and writes it to a timestamped file.
// Returns the path to the saved file.
func (l *ExchangeLog) Save(exchange LLMExchange) (string, error) {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return "", err
	}

	// Dashes instead of colons for filesystem compatibility; nanoseconds keep
	// back-to-back exchanges apart.
	filename := fmt.Sprintf("%s-%s.json", exchange.Timestamp.Format("2006-01-02T15-04-05.000000000"), exchange.Provider)
	path := filepath.Join(l.dir, filename)

	data, err := json.MarshalIndent(exchange, "", "  ")
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}

	return path, nil
}
