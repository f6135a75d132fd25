package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ibeckermayer/icebreaker/internal/types"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "icebreaker.db")
	s, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestStore_KV(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "a", []byte("1")))
	require.NoError(t, s.Set(ctx, "b", []byte("2")))
	require.NoError(t, s.Set(ctx, "a", []byte("3")))

	v, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), v)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Clear(ctx))
	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStore_InMemory(t *testing.T) {
	s, err := New(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set(context.Background(), "k", []byte("v")))
	v, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

func TestCredentialStore(t *testing.T) {
	s, path := newStore(t)
	ctx := context.Background()
	creds := NewCredentialStore(s)

	_, err := creds.Load(ctx)
	assert.ErrorIs(t, err, ErrNotConfigured)

	cfg := types.ProviderConfig{
		Active:      types.ProviderClaude,
		Credentials: map[types.ProviderID]string{types.ProviderClaude: "sk-ant-1"},
	}
	require.NoError(t, creds.Save(ctx, cfg))

	// Mutating the caller's copy must not leak into the cache.
	cfg.Credentials[types.ProviderClaude] = "changed"

	loaded, err := creds.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.ProviderClaude, loaded.Active)
	assert.Equal(t, "sk-ant-1", loaded.Credential(types.ProviderClaude))

	loaded.Credentials[types.ProviderGemini] = "leak"
	again, err := creds.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Credential(types.ProviderGemini))

	raw, err := s.Get(ctx, CredentialKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"provider":"claude","claudeApiKey":"sk-ant-1"}`, string(raw))

	// A second process sees the persisted record.
	require.NoError(t, s.Close())
	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	fresh, err := NewCredentialStore(reopened).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-1", fresh.Credential(types.ProviderClaude))
}

func TestCredentialStore_RoundTripIsExact(t *testing.T) {
	s, path := newStore(t)
	ctx := context.Background()
	creds := NewCredentialStore(s)

	saved := types.ProviderConfig{
		Active:      types.ProviderClaude,
		Credentials: map[types.ProviderID]string{types.ProviderClaude: "k", types.ProviderGemini: ""},
	}
	want := types.ProviderConfig{
		Active:      types.ProviderClaude,
		Credentials: map[types.ProviderID]string{types.ProviderClaude: "k"},
	}
	require.NoError(t, creds.Save(ctx, saved))

	cached, err := creds.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, cached)

	require.NoError(t, s.Close())
	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	fresh, err := NewCredentialStore(reopened).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, fresh, "cache and disk agree")
}

func TestCredentialStore_ResetClearsEverything(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	creds := NewCredentialStore(s)

	require.NoError(t, s.Set(ctx, "sessionCookies", []byte(`{}`)))
	require.NoError(t, creds.Save(ctx, types.ProviderConfig{
		Active:      types.ProviderGemini,
		Credentials: map[types.ProviderID]string{types.ProviderGemini: "AIza"},
	}))

	require.NoError(t, creds.Reset(ctx))

	_, err := creds.Load(ctx)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = s.Get(ctx, "sessionCookies")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCredentialStore_CorruptRecord(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, CredentialKey, []byte(`{not json`)))

	_, err := NewCredentialStore(s).Load(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotConfigured)
}

func TestExchangeLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "llm")
	log := NewExchangeLog(dir, zap.NewNop())
	log.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) }

	require.NoError(t, log.RecordExchange(context.Background(), types.ProviderGemini, "gemini-1.5-flash", "prompt", "1. hey"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-05-01T12-30-00.000000000-gemini.json", entries[0].Name())

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)

	var got LLMExchange
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, types.ProviderGemini, got.Provider)
	assert.Equal(t, "1. hey", got.Response)
}
