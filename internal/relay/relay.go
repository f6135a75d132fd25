// Package relay drives one session of the suggestion surface: it finds the
// profile in the active tab, fetches it through the content bridge and turns
// it into conversation starters with the selected provider.
package relay

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/ibeckermayer/icebreaker/internal/bridge"
	"github.com/ibeckermayer/icebreaker/internal/generator"
	"github.com/ibeckermayer/icebreaker/internal/types"
)

// DefaultPostCount is how many posts are requested per profile.
const DefaultPostCount = 20

// PlaceholderBio replaces the bio when the profile could not be fetched.
const PlaceholderBio = "Could not fetch profile data"

var (
	// ErrNothingToGenerate means no profile or no posts are loaded.
	ErrNothingToGenerate = errors.New("no profile data to generate from")
	// ErrGenerating is returned while another generation is running.
	ErrGenerating = errors.New("generation already in progress")
	// ErrNoCredential means the chosen provider has no stored API key.
	ErrNoCredential = errors.New("no API key configured for provider")
)

// TabQuerier finds the tab the user is looking at.
type TabQuerier interface {
	ActiveTab(ctx context.Context) (types.Tab, error)
}

// Messenger delivers a request to the content script of a tab.
type Messenger interface {
	SendMessage(ctx context.Context, tabID string, req bridge.Request, out any) error
}

// CredentialSource persists the provider configuration.
type CredentialSource interface {
	Load(ctx context.Context) (types.ProviderConfig, error)
	Save(ctx context.Context, cfg types.ProviderConfig) error
	Reset(ctx context.Context) error
}

// ProviderFactory builds an uninitialized provider.
type ProviderFactory func(id types.ProviderID) (generator.Provider, error)

// Options tunes a Relay. Zero values use the defaults.
type Options struct {
	PostCount int
	Hosts     []string
}

// Selection is the user's choice of provider and tone.
type Selection struct {
	Provider types.ProviderID
	Style    types.Style
	Persona  types.Persona
}

// State is a point-in-time view of the surface.
type State struct {
	Tab         types.Tab
	Handle      string
	Profile     *types.Profile
	Posts       []types.Post
	Suggestions []types.Suggestion
	Generating  bool
	Configured  bool
}

func (s State) clone() State {
	if s.Profile != nil {
		p := *s.Profile
		s.Profile = &p
	}
	s.Posts = slices.Clone(s.Posts)
	s.Suggestions = slices.Clone(s.Suggestions)
	return s
}

// Relay holds the surface state.
type Relay struct {
	tabs      TabQuerier // immutable after creation
	messenger Messenger
	creds     CredentialSource
	factory   ProviderFactory
	opts      Options
	logger    *zap.Logger

	mu    sync.RWMutex
	state State

	provMu    sync.Mutex
	providers map[types.ProviderID]generator.Provider
}

// New creates a Relay.
func New(tabs TabQuerier, messenger Messenger, creds CredentialSource, factory ProviderFactory, opts Options, logger *zap.Logger) *Relay {
	if opts.PostCount <= 0 {
		opts.PostCount = DefaultPostCount
	}
	if len(opts.Hosts) == 0 {
		opts.Hosts = DefaultHosts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		tabs:      tabs,
		messenger: messenger,
		creds:     creds,
		factory:   factory,
		opts:      opts,
		logger:    logger,
		providers: make(map[types.ProviderID]generator.Provider),
	}
}

// State returns a snapshot of the current state.
func (r *Relay) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.clone()
}

// Activate loads the profile shown in the active tab. Failures never
// surface: they leave the state empty or filled with placeholders.
func (r *Relay) Activate(ctx context.Context) State {
	next := State{Configured: r.configured(ctx)}

	tab, err := r.tabs.ActiveTab(ctx)
	if err != nil {
		r.logger.Warn("No active tab", zap.Error(err))
		return r.replace(next)
	}
	next.Tab = tab

	handle, ok := HandleFromURL(tab.URL, r.opts.Hosts)
	if !ok {
		r.logger.Debug("Active tab is not a profile page", zap.String("url", tab.URL))
		return r.replace(next)
	}
	next.Handle = handle

	logger := r.logger.With(zap.String("tab", tab.ID), zap.String("handle", handle))

	var profile types.Profile
	if err := r.messenger.SendMessage(ctx, tab.ID, bridge.GetProfileData(handle), &profile); err != nil {
		logger.Warn("Error fetching profile", zap.Error(err))
		profile = placeholderProfile(handle)
	}
	next.Profile = &profile

	var posts []types.Post
	if err := r.messenger.SendMessage(ctx, tab.ID, bridge.GetTweets(handle, r.opts.PostCount), &posts); err != nil {
		logger.Warn("Error fetching posts", zap.Error(err))
		posts = nil
	}
	next.Posts = posts
	if next.Posts == nil {
		next.Posts = []types.Post{}
	}

	logger.Info("Loaded profile", zap.Int("posts", len(next.Posts)))
	return r.replace(next)
}

func placeholderProfile(handle string) types.Profile {
	return types.Profile{
		Username:       handle,
		Bio:            PlaceholderBio,
		FollowersCount: "0",
		FollowingCount: "0",
	}
}

func (r *Relay) replace(next State) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	next.Generating = r.state.Generating
	r.state = next
	return r.state.clone()
}

// configured reports whether any credential is stored. Read errors count as
// not configured.
func (r *Relay) configured(ctx context.Context) bool {
	cfg, err := r.creds.Load(ctx)
	if err != nil {
		return false
	}
	return cfg.HasAnyCredential()
}

// Configure validates credential by initializing the provider with it and, on
// success, makes provider the active one and persists the configuration.
func (r *Relay) Configure(ctx context.Context, provider types.ProviderID, credential string) error {
	if !provider.Valid() {
		return fmt.Errorf("unknown provider: %q", provider)
	}

	p, err := r.factory(provider)
	if err != nil {
		return err
	}
	if err := p.Initialize(ctx, credential); err != nil {
		return fmt.Errorf("failed to initialize %s: %w", provider, err)
	}

	cfg, err := r.creds.Load(ctx)
	if err != nil {
		cfg = types.ProviderConfig{}
	}
	if cfg.Credentials == nil {
		cfg.Credentials = make(map[types.ProviderID]string)
	}
	cfg.Active = provider
	cfg.Credentials[provider] = credential

	if err := r.creds.Save(ctx, cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	r.provMu.Lock()
	r.providers[provider] = p
	r.provMu.Unlock()

	r.mu.Lock()
	r.state.Configured = true
	r.mu.Unlock()

	r.logger.Info("Provider configured", zap.String("provider", string(provider)))
	return nil
}

// Reset erases all stored configuration.
func (r *Relay) Reset(ctx context.Context) error {
	if err := r.creds.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset configuration: %w", err)
	}

	r.provMu.Lock()
	clear(r.providers)
	r.provMu.Unlock()

	r.mu.Lock()
	r.state.Configured = false
	r.state.Suggestions = nil
	r.mu.Unlock()
	return nil
}

// ActiveProvider returns the stored active provider, or "" when unconfigured.
func (r *Relay) ActiveProvider(ctx context.Context) types.ProviderID {
	cfg, err := r.creds.Load(ctx)
	if err != nil {
		return ""
	}
	return cfg.Active
}

// Generate produces suggestions for the loaded profile. On failure the
// suggestions stay empty and the error is returned.
func (r *Relay) Generate(ctx context.Context, sel Selection) ([]types.Suggestion, error) {
	r.mu.Lock()
	if r.state.Generating {
		r.mu.Unlock()
		return nil, ErrGenerating
	}
	if r.state.Profile == nil || len(r.state.Posts) == 0 {
		r.mu.Unlock()
		return nil, ErrNothingToGenerate
	}
	profile := *r.state.Profile
	postTexts := make([]string, 0, len(r.state.Posts))
	for _, p := range r.state.Posts {
		postTexts = append(postTexts, p.Text)
	}
	r.state.Generating = true
	r.state.Suggestions = nil
	r.mu.Unlock()

	suggestions, err := r.generate(ctx, sel, profile, postTexts)

	r.mu.Lock()
	r.state.Generating = false
	if err == nil {
		r.state.Suggestions = suggestions
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("Error generating suggestions", zap.String("provider", string(sel.Provider)), zap.Error(err))
		return nil, err
	}
	return slices.Clone(suggestions), nil
}

func (r *Relay) generate(ctx context.Context, sel Selection, profile types.Profile, postTexts []string) ([]types.Suggestion, error) {
	req := types.GenerationRequest{
		ProfileSummary: ProfileSummary(profile),
		PostTexts:      postTexts,
		Style:          sel.Style,
		Persona:        sel.Persona,
		Provider:       sel.Provider,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := r.provider(ctx, sel.Provider)
	if err != nil {
		return nil, err
	}
	return generator.Generate(ctx, p, req)
}

// provider returns an initialized provider, initializing it from stored
// credentials on first use.
func (r *Relay) provider(ctx context.Context, id types.ProviderID) (generator.Provider, error) {
	r.provMu.Lock()
	defer r.provMu.Unlock()

	if p, ok := r.providers[id]; ok {
		return p, nil
	}

	cfg, err := r.creds.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCredential, id)
	}
	credential := cfg.Credential(id)
	if credential == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoCredential, id)
	}

	p, err := r.factory(id)
	if err != nil {
		return nil, err
	}
	if err := p.Initialize(ctx, credential); err != nil {
		return nil, fmt.Errorf("failed to initialize %s: %w", id, err)
	}
	r.providers[id] = p
	return p, nil
}

// ProfileSummary renders the profile block sent to providers.
func ProfileSummary(p types.Profile) string {
	return fmt.Sprintf("Username: %s\nBio: %s\nFollowers: %s\nFollowing: %s",
		p.Username, p.Bio, p.FollowersCount, p.FollowingCount)
}
