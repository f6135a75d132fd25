package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/ibeckermayer/icebreaker/internal/browser"
)

// ErrLoginTimeout is returned when the user did not finish logging in.
var ErrLoginTimeout = errors.New("login timeout exceeded")

const (
	loginURL        = "https://x.com/login"
	loginTimeout    = 5 * time.Minute
	loginPollPeriod = 2 * time.Second
)

// Manager handles X.com authentication
type Manager struct {
	cookieStore *CookieStore
	logger      *zap.Logger
}

// NewManager creates a new auth manager
func NewManager(cookieStore *CookieStore, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{cookieStore: cookieStore, logger: logger}
}

// IsAuthenticated checks if we have valid stored credentials
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	return m.cookieStore.IsValid(ctx)
}

// Login opens a visible browser window for the user to log in to X.com and
// stores the session cookies once the home timeline is reached.
func (m *Manager) Login(ctx context.Context) error {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, browser.Options(false)...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	if err := chromedp.Run(browserCtx, chromedp.Navigate(loginURL)); err != nil {
		return fmt.Errorf("failed to navigate to login page: %w", err)
	}
	m.logger.Info("Waiting for login", zap.Duration("timeout", loginTimeout))

	if err := m.waitForLogin(browserCtx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	cookies, err := extractCookies(browserCtx)
	if err != nil {
		return fmt.Errorf("failed to extract cookies: %w", err)
	}

	if err := m.cookieStore.Save(ctx, cookies); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}

	m.logger.Info("Login captured", zap.Int("cookies", len(cookies)))
	return nil
}

// waitForLogin polls until the user has successfully logged in
func (m *Manager) waitForLogin(ctx context.Context) error {
	timeout := time.After(loginTimeout)
	ticker := time.NewTicker(loginPollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			return ErrLoginTimeout
		case <-ticker.C:
			var url string
			if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
				continue
			}
			if !isHomeURL(url) {
				continue
			}

			cookies, err := extractCookies(ctx)
			if err != nil {
				continue
			}
			if hasAuthToken(cookies) {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func isHomeURL(url string) bool {
	return url == "https://x.com/home" || url == "https://twitter.com/home"
}

func hasAuthToken(cookies []*network.Cookie) bool {
	for _, c := range cookies {
		if c.Name == "auth_token" && c.Value != "" {
			return true
		}
	}
	return false
}

// extractCookies gets all cookies from the browser
func extractCookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie

	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
	)

	return cookies, err
}

// Logout clears stored credentials
func (m *Manager) Logout(ctx context.Context) error {
	return m.cookieStore.Clear(ctx)
}

// Cookies returns the stored x.com cookies. A missing or expired session
// yields nil with no error so callers can still browse logged out.
func (m *Manager) Cookies(ctx context.Context) ([]*network.Cookie, error) {
	if !m.cookieStore.IsValid(ctx) {
		m.logger.Debug("No valid X session stored")
		return nil, nil
	}
	return m.cookieStore.XCookies(ctx)
}
