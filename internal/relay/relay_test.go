package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ibeckermayer/icebreaker/internal/bridge"
	"github.com/ibeckermayer/icebreaker/internal/generator"
	"github.com/ibeckermayer/icebreaker/internal/store"
	"github.com/ibeckermayer/icebreaker/internal/types"
)

type fakeTabs struct {
	tab types.Tab
	err error
}

func (f fakeTabs) ActiveTab(context.Context) (types.Tab, error) { return f.tab, f.err }

type fakeMessenger struct {
	mu        sync.Mutex
	responses map[bridge.Type]any
	errs      map[bridge.Type]error
	requests  []bridge.Request
}

func (f *fakeMessenger) SendMessage(_ context.Context, _ string, req bridge.Request, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	if err := f.errs[req.Type]; err != nil {
		return err
	}
	data, err := json.Marshal(f.responses[req.Type])
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

type memCreds struct {
	mu  sync.Mutex
	cfg *types.ProviderConfig
	err error
}

func (m *memCreds) Load(context.Context) (types.ProviderConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return types.ProviderConfig{}, m.err
	}
	if m.cfg == nil {
		return types.ProviderConfig{}, store.ErrNotConfigured
	}
	return m.cfg.Clone(), nil
}

func (m *memCreds) Save(_ context.Context, cfg types.ProviderConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := cfg.Clone()
	m.cfg = &c
	return nil
}

func (m *memCreds) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = nil
	return nil
}

type fakeProvider struct {
	id          types.ProviderID
	initErr     error
	texts       []string
	genErr      error
	credential  string
	lastSummary string
	lastPosts   []string
	block       chan struct{}
}

func (p *fakeProvider) ID() types.ProviderID { return p.id }

func (p *fakeProvider) Initialize(_ context.Context, credential string) error {
	if p.initErr != nil {
		return p.initErr
	}
	p.credential = credential
	return nil
}

func (p *fakeProvider) GenerateSuggestions(_ context.Context, summary string, posts []string, _ types.Style, _ types.Persona) ([]string, error) {
	if p.block != nil {
		<-p.block
	}
	p.lastSummary = summary
	p.lastPosts = posts
	return p.texts, p.genErr
}

type factory struct {
	mu      sync.Mutex
	built   map[types.ProviderID]int
	builder func(types.ProviderID) *fakeProvider
}

func (f *factory) New(id types.ProviderID) (generator.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.built == nil {
		f.built = make(map[types.ProviderID]int)
	}
	f.built[id]++
	return f.builder(id), nil
}

var janedoe = types.Profile{Username: "janedoe", Bio: "hiking", FollowersCount: "1,204", FollowingCount: "89"}

func profileMessenger() *fakeMessenger {
	return &fakeMessenger{responses: map[bridge.Type]any{
		bridge.TypeGetProfileData: janedoe,
		bridge.TypeGetTweets:      []types.Post{{ID: "1", Text: "summit today"}, {ID: "2", Text: "coffee first"}},
	}}
}

func newRelay(tabs TabQuerier, m Messenger, creds CredentialSource, f *factory) *Relay {
	return New(tabs, m, creds, f.New, Options{}, zap.NewNop())
}

func TestActivate_ProfilePage(t *testing.T) {
	m := profileMessenger()
	tabs := fakeTabs{tab: types.Tab{ID: "tab-1", URL: "https://x.com/janedoe"}}
	r := newRelay(tabs, m, &memCreds{}, &factory{})

	state := r.Activate(context.Background())
	assert.Equal(t, "janedoe", state.Handle)
	require.NotNil(t, state.Profile)
	assert.Equal(t, janedoe, *state.Profile)
	assert.Len(t, state.Posts, 2)
	assert.False(t, state.Configured)

	require.Len(t, m.requests, 2)
	assert.Equal(t, bridge.GetProfileData("janedoe"), m.requests[0])
	assert.Equal(t, bridge.GetTweets("janedoe", DefaultPostCount), m.requests[1])

	assert.Equal(t, state, r.State())
}

func TestActivate_Failures(t *testing.T) {
	t.Run("no tab", func(t *testing.T) {
		r := newRelay(fakeTabs{err: errors.New("no active tab")}, profileMessenger(), &memCreds{}, &factory{})
		state := r.Activate(context.Background())
		assert.Nil(t, state.Profile)
		assert.Empty(t, state.Posts)
	})

	t.Run("not a profile page", func(t *testing.T) {
		m := profileMessenger()
		r := newRelay(fakeTabs{tab: types.Tab{ID: "t", URL: "https://x.com/home"}}, m, &memCreds{}, &factory{})
		state := r.Activate(context.Background())
		assert.Nil(t, state.Profile)
		assert.Empty(t, m.requests)
	})

	t.Run("messaging fails", func(t *testing.T) {
		m := profileMessenger()
		m.errs = map[bridge.Type]error{
			bridge.TypeGetProfileData: &bridge.RemoteError{Type: bridge.TypeGetProfileData, Message: "timed out"},
			bridge.TypeGetTweets:      bridge.ErrClosed,
		}
		r := newRelay(fakeTabs{tab: types.Tab{ID: "t", URL: "https://twitter.com/janedoe/media"}}, m, &memCreds{}, &factory{})

		state := r.Activate(context.Background())
		require.NotNil(t, state.Profile)
		assert.Equal(t, types.Profile{Username: "janedoe", Bio: PlaceholderBio, FollowersCount: "0", FollowingCount: "0"}, *state.Profile)
		assert.NotNil(t, state.Posts)
		assert.Empty(t, state.Posts)
	})
}

func TestConfigure(t *testing.T) {
	creds := &memCreds{}
	f := &factory{builder: func(id types.ProviderID) *fakeProvider { return &fakeProvider{id: id} }}
	r := newRelay(fakeTabs{}, profileMessenger(), creds, f)
	ctx := context.Background()

	require.NoError(t, r.Configure(ctx, types.ProviderClaude, "sk-ant"))
	require.NoError(t, r.Configure(ctx, types.ProviderGemini, "AIza"))

	cfg, err := creds.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.ProviderGemini, cfg.Active)
	assert.Equal(t, "sk-ant", cfg.Credential(types.ProviderClaude), "other credentials survive")
	assert.Equal(t, "AIza", cfg.Credential(types.ProviderGemini))
	assert.True(t, r.State().Configured)
	assert.Equal(t, types.ProviderGemini, r.ActiveProvider(ctx))

	assert.Error(t, r.Configure(ctx, "openai", "key"))
}

func TestConfigure_InitializeFailureNotPersisted(t *testing.T) {
	creds := &memCreds{}
	f := &factory{builder: func(id types.ProviderID) *fakeProvider {
		return &fakeProvider{id: id, initErr: errors.New("API key is required")}
	}}
	r := newRelay(fakeTabs{}, profileMessenger(), creds, f)

	err := r.Configure(context.Background(), types.ProviderClaude, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")

	_, err = creds.Load(context.Background())
	assert.ErrorIs(t, err, store.ErrNotConfigured)
}

func TestGenerate(t *testing.T) {
	creds := &memCreds{}
	require.NoError(t, creds.Save(context.Background(), types.ProviderConfig{
		Active:      types.ProviderGemini,
		Credentials: map[types.ProviderID]string{types.ProviderGemini: "AIza"},
	}))

	gemini := &fakeProvider{id: types.ProviderGemini, texts: []string{"hey!", "what's up"}}
	f := &factory{builder: func(types.ProviderID) *fakeProvider { return gemini }}
	r := newRelay(fakeTabs{tab: types.Tab{ID: "t", URL: "https://x.com/janedoe"}}, profileMessenger(), creds, f)
	ctx := context.Background()

	_, err := r.Generate(ctx, Selection{Provider: types.ProviderGemini, Style: types.StyleCasual, Persona: types.PersonaFemale})
	assert.ErrorIs(t, err, ErrNothingToGenerate)

	state := r.Activate(ctx)
	assert.True(t, state.Configured)

	sel := Selection{Provider: types.ProviderGemini, Style: types.StyleCasual, Persona: types.PersonaFemale}
	got, err := r.Generate(ctx, sel)
	require.NoError(t, err)
	assert.Equal(t, []types.Suggestion{
		{Topic: "Suggestion 1", Text: "hey!", Confidence: 1.0},
		{Topic: "Suggestion 2", Text: "what's up", Confidence: 1.0},
	}, got)
	assert.Equal(t, "AIza", gemini.credential)
	assert.Equal(t, "Username: janedoe\nBio: hiking\nFollowers: 1,204\nFollowing: 89", gemini.lastSummary)
	assert.Equal(t, []string{"summit today", "coffee first"}, gemini.lastPosts)
	assert.Equal(t, got, r.State().Suggestions)
	assert.False(t, r.State().Generating)

	_, err = r.Generate(ctx, sel)
	require.NoError(t, err)
	assert.Equal(t, 1, f.built[types.ProviderGemini], "provider initialized once")
}

func TestGenerate_Errors(t *testing.T) {
	ctx := context.Background()
	tabs := fakeTabs{tab: types.Tab{ID: "t", URL: "https://x.com/janedoe"}}
	sel := Selection{Provider: types.ProviderClaude, Style: types.StyleWitty, Persona: types.PersonaMale}

	t.Run("no credential", func(t *testing.T) {
		r := newRelay(tabs, profileMessenger(), &memCreds{}, &factory{})
		r.Activate(ctx)
		_, err := r.Generate(ctx, sel)
		assert.ErrorIs(t, err, ErrNoCredential)
		assert.Empty(t, r.State().Suggestions)
		assert.False(t, r.State().Generating)
	})

	t.Run("provider failure", func(t *testing.T) {
		boom := errors.New("quota exceeded")
		creds := &memCreds{}
		require.NoError(t, creds.Save(ctx, types.ProviderConfig{Credentials: map[types.ProviderID]string{types.ProviderClaude: "sk"}}))
		f := &factory{builder: func(id types.ProviderID) *fakeProvider { return &fakeProvider{id: id, genErr: boom} }}

		r := newRelay(tabs, profileMessenger(), creds, f)
		r.Activate(ctx)
		_, err := r.Generate(ctx, sel)
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, r.State().Suggestions)
		assert.False(t, r.State().Generating)
	})

	t.Run("bad selection", func(t *testing.T) {
		r := newRelay(tabs, profileMessenger(), &memCreds{}, &factory{})
		r.Activate(ctx)
		_, err := r.Generate(ctx, Selection{Provider: types.ProviderClaude, Style: "sarcastic", Persona: types.PersonaMale})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown style")
	})
}

func TestGenerate_Busy(t *testing.T) {
	ctx := context.Background()
	creds := &memCreds{}
	require.NoError(t, creds.Save(ctx, types.ProviderConfig{Credentials: map[types.ProviderID]string{types.ProviderGemini: "AIza"}}))

	block := make(chan struct{})
	p := &fakeProvider{id: types.ProviderGemini, texts: []string{"hi"}, block: block}
	r := newRelay(fakeTabs{tab: types.Tab{ID: "t", URL: "https://x.com/janedoe"}}, profileMessenger(), creds,
		&factory{builder: func(types.ProviderID) *fakeProvider { return p }})
	r.Activate(ctx)

	sel := Selection{Provider: types.ProviderGemini, Style: types.StyleCasual, Persona: types.PersonaFemale}
	done := make(chan error, 1)
	go func() {
		_, err := r.Generate(ctx, sel)
		done <- err
	}()

	require.Eventually(t, func() bool { return r.State().Generating }, time.Second, 5*time.Millisecond)
	_, err := r.Generate(ctx, sel)
	assert.ErrorIs(t, err, ErrGenerating)

	close(block)
	require.NoError(t, <-done)
	assert.False(t, r.State().Generating)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	creds := &memCreds{}
	f := &factory{builder: func(id types.ProviderID) *fakeProvider { return &fakeProvider{id: id} }}
	r := newRelay(fakeTabs{}, profileMessenger(), creds, f)

	require.NoError(t, r.Configure(ctx, types.ProviderClaude, "sk"))
	require.NoError(t, r.Reset(ctx))

	assert.False(t, r.State().Configured)
	assert.Empty(t, r.ActiveProvider(ctx))
	_, err := creds.Load(ctx)
	assert.ErrorIs(t, err, store.ErrNotConfigured)
}

func TestStateSnapshotIsolated(t *testing.T) {
	r := newRelay(fakeTabs{tab: types.Tab{ID: "t", URL: "https://x.com/janedoe"}}, profileMessenger(), &memCreds{}, &factory{})
	state := r.Activate(context.Background())

	state.Posts[0].Text = "mutated"
	state.Profile.Bio = "mutated"

	fresh := r.State()
	assert.Equal(t, "summit today", fresh.Posts[0].Text)
	assert.Equal(t, "hiking", fresh.Profile.Bio)
}

func TestHandleFromURL(t *testing.T) {
	tests := []struct {
		url    string
		handle string
		ok     bool
	}{
		{"https://x.com/janedoe", "janedoe", true},
		{"https://x.com/janedoe/", "janedoe", true},
		{"https://twitter.com/Jane_Doe99/status/123", "Jane_Doe99", true},
		{"https://www.x.com/janedoe?lang=en", "janedoe", true},
		{"https://mobile.twitter.com/janedoe", "janedoe", true},
		{"https://x.com/home", "", false},
		{"https://x.com/i/bookmarks", "", false},
		{"https://x.com/", "", false},
		{"https://x.com/this_handle_is_too_long", "", false},
		{"https://example.com/janedoe", "", false},
		{"chrome://newtab", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		handle, ok := HandleFromURL(tt.url, nil)
		assert.Equal(t, tt.ok, ok, tt.url)
		assert.Equal(t, tt.handle, handle, tt.url)
	}
}
