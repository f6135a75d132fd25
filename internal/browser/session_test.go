package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func requireChrome(t *testing.T) {
	t.Helper()
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no Chrome or Chromium binary on PATH")
}

func TestOptions(t *testing.T) {
	assert.Greater(t, len(Options(false)), len(Options(true)), "headful adds window flags")
}

func TestSessionOpenAndRead(t *testing.T) {
	requireChrome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div data-testid="UserName">Jane</div></body></html>`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := Launch(ctx, LaunchOptions{Headless: true, PollInterval: 50 * time.Millisecond}, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	opened, err := s.Open(ctx, srv.URL)
	require.NoError(t, err)

	active, err := s.ActiveTab(ctx)
	require.NoError(t, err)
	assert.Equal(t, opened.ID, active.ID)

	page, err := s.Page(ctx, opened.ID)
	require.NoError(t, err)
	again, err := s.Page(ctx, opened.ID)
	require.NoError(t, err)
	assert.Same(t, page, again, "pages are cached per tab")

	doc, err := page.Document(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Jane", doc.Find(`[data-testid="UserName"]`).Text())
}
