package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ibeckermayer/icebreaker/internal/types"
)

// CredentialKey is where the provider configuration record lives.
const CredentialKey = "aiConfig"

// ErrNotConfigured means no provider configuration has been saved.
var ErrNotConfigured = errors.New("no AI provider configured")

// CredentialStore persists the single ProviderConfig record.
// The record is read once and cached; every Save replaces it wholesale.
type CredentialStore struct {
	store *Store

	mu     sync.Mutex
	loaded bool
	cached *types.ProviderConfig
}

// NewCredentialStore wraps s
func NewCredentialStore(s *Store) *CredentialStore {
	return &CredentialStore{store: s}
}

// Load returns a copy of the stored configuration.
func (c *CredentialStore) Load(ctx context.Context) (types.ProviderConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		cfg, err := c.read(ctx)
		if err != nil {
			return types.ProviderConfig{}, err
		}
		c.cached = cfg
		c.loaded = true
	}

	if c.cached == nil {
		return types.ProviderConfig{}, ErrNotConfigured
	}
	return c.cached.Clone(), nil
}

func (c *CredentialStore) read(ctx context.Context) (*types.ProviderConfig, error) {
	data, err := c.store.Get(ctx, CredentialKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg types.ProviderConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", CredentialKey, err)
	}
	return &cfg, nil
}

// Save replaces the stored configuration with cfg. Empty credentials are
// not persisted, so Load returns cfg.Compact().
func (c *CredentialStore) Save(ctx context.Context, cfg types.ProviderConfig) error {
	cfg = cfg.Compact()
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Set(ctx, CredentialKey, data); err != nil {
		return err
	}
	c.cached = &cfg
	c.loaded = true
	return nil
}

// Reset clears the entire store, not just the credential record.
func (c *CredentialStore) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	c.cached = nil
	c.loaded = true
	return nil
}
