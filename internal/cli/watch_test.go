package cli

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ibeckermayer/icebreaker/internal/bridge"
	"github.com/ibeckermayer/icebreaker/internal/generator"
	"github.com/ibeckermayer/icebreaker/internal/relay"
	"github.com/ibeckermayer/icebreaker/internal/types"
)

type switchingTab struct {
	mu  sync.Mutex
	url string
}

func (s *switchingTab) set(url string) {
	s.mu.Lock()
	s.url = url
	s.mu.Unlock()
}

func (s *switchingTab) ActiveTab(context.Context) (types.Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.Tab{ID: "T1", URL: s.url}, nil
}

type echoMessenger struct {
	calls    int
	postsErr error
}

func (e *echoMessenger) SendMessage(_ context.Context, _ string, req bridge.Request, out any) error {
	e.calls++
	if req.Type == bridge.TypeGetTweets && e.postsErr != nil {
		return e.postsErr
	}
	switch v := out.(type) {
	case *types.Profile:
		*v = types.Profile{Username: req.Username, Bio: "bio", FollowersCount: "1", FollowingCount: "2"}
	case *[]types.Post:
		*v = []types.Post{{ID: "p1", Text: "hello from " + req.Username}}
	}
	return nil
}

type staticCreds struct{ cfg types.ProviderConfig }

func (s *staticCreds) Load(context.Context) (types.ProviderConfig, error) { return s.cfg.Clone(), nil }
func (s *staticCreds) Save(_ context.Context, cfg types.ProviderConfig) error {
	s.cfg = cfg
	return nil
}
func (s *staticCreds) Reset(context.Context) error { return nil }

type cannedProvider struct{ generated int }

func (p *cannedProvider) ID() types.ProviderID                    { return types.ProviderGemini }
func (p *cannedProvider) Initialize(context.Context, string) error { return nil }
func (p *cannedProvider) GenerateSuggestions(context.Context, string, []string, types.Style, types.Persona) ([]string, error) {
	p.generated++
	return []string{"hey", "yo"}, nil
}

func TestWatcherTick(t *testing.T) {
	tabs := &switchingTab{url: "https://x.com/alice"}
	msgr := &echoMessenger{}
	prov := &cannedProvider{}
	creds := &staticCreds{cfg: types.ProviderConfig{
		Active:      types.ProviderGemini,
		Credentials: map[types.ProviderID]string{types.ProviderGemini: "key"},
	}}
	r := relay.New(tabs, msgr, creds, func(types.ProviderID) (generator.Provider, error) { return prov, nil }, relay.Options{}, zap.NewNop())

	var rendered []relay.State
	w := &watcher{
		relay:  r,
		render: func(s relay.State) error { rendered = append(rendered, s); return nil },
		sel:    relay.Selection{Provider: types.ProviderGemini, Style: types.StyleCasual, Persona: types.PersonaFemale},
		logger: zap.NewNop(),
	}
	ctx := context.Background()

	require.NoError(t, w.tick(ctx))
	require.Len(t, rendered, 1)
	assert.Equal(t, "alice", rendered[0].Handle)
	assert.Len(t, rendered[0].Suggestions, 2)

	// Same profile: refetched but not regenerated or printed.
	require.NoError(t, w.tick(ctx))
	assert.Len(t, rendered, 1)
	assert.Equal(t, 1, prov.generated)

	tabs.set("https://x.com/home")
	require.NoError(t, w.tick(ctx))
	assert.Len(t, rendered, 1, "non-profile tabs print nothing")

	tabs.set("https://x.com/bob")
	require.NoError(t, w.tick(ctx))
	require.Len(t, rendered, 2)
	assert.Equal(t, "bob", rendered[1].Handle)
	assert.Equal(t, 2, prov.generated)
}
