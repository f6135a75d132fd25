package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/ibeckermayer/icebreaker/internal/scraper"
	"github.com/ibeckermayer/icebreaker/internal/types"
)

// ErrNoActiveTab means the browser has no page tab besides our own.
var ErrNoActiveTab = errors.New("no active tab")

// Session is a connection to one browser.
type Session struct {
	browserCtx   context.Context
	cancel       context.CancelFunc
	pollInterval time.Duration
	logger       *zap.Logger

	mu   sync.Mutex
	tabs map[target.ID]*tab
}

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
	page   *scraper.BrowserPage
	// opened marks tabs created by Open; only those are closed with the session.
	opened bool
}

// LaunchOptions configures a browser started by Launch.
type LaunchOptions struct {
	Headless     bool
	PollInterval time.Duration
	// Cookies are set before any navigation.
	Cookies []*network.Cookie
}

// Launch starts a new browser with stealth flags.
// ctx bounds the browser's lifetime, not just the launch.
func Launch(ctx context.Context, opts LaunchOptions, logger *zap.Logger) (*Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, Options(opts.Headless)...)
	s, err := start(allocCtx, allocCancel, opts.PollInterval, logger)
	if err != nil {
		return nil, err
	}

	if len(opts.Cookies) > 0 {
		if err := s.InjectCookies(opts.Cookies); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to inject cookies: %w", err)
		}
	}
	return s, nil
}

// Attach connects to a running browser's DevTools endpoint, e.g. one started
// with --remote-debugging-port=9222.
func Attach(ctx context.Context, remoteURL string, pollInterval time.Duration, logger *zap.Logger) (*Session, error) {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, remoteURL)
	return start(allocCtx, allocCancel, pollInterval, logger)
}

func start(allocCtx context.Context, allocCancel context.CancelFunc, pollInterval time.Duration, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = scraper.DefaultPollInterval
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Warnf),
	)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Session{
		browserCtx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
		pollInterval: pollInterval,
		logger:       logger,
		tabs:         make(map[target.ID]*tab),
	}, nil
}

// InjectCookies sets cookies in the browser context
func (s *Session) InjectCookies(cookies []*network.Cookie) error {
	return chromedp.Run(s.browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				err := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly).
					WithSameSite(c.SameSite).
					Do(ctx)

				if err != nil {
					return err
				}
			}
			return nil
		}),
	)
}

// ActiveTab returns the first page tab that is not the session's own control
// tab. DevTools has no focus flag, so "active" means first listed.
func (s *Session) ActiveTab(ctx context.Context) (types.Tab, error) {
	if err := ctx.Err(); err != nil {
		return types.Tab{}, err
	}

	infos, err := chromedp.Targets(s.browserCtx)
	if err != nil {
		return types.Tab{}, fmt.Errorf("failed to list tabs: %w", err)
	}

	own := chromedp.FromContext(s.browserCtx).Target.TargetID
	for _, info := range infos {
		if info.Type != "page" || info.TargetID == own {
			continue
		}
		return types.Tab{ID: string(info.TargetID), URL: info.URL}, nil
	}
	return types.Tab{}, ErrNoActiveTab
}

// Open loads url in a new tab and waits for it to become ready.
func (s *Session) Open(ctx context.Context, url string) (types.Tab, error) {
	tabCtx, cancel := chromedp.NewContext(s.browserCtx)
	stop := context.AfterFunc(ctx, cancel)

	err := chromedp.Run(tabCtx, chromedp.Navigate(url))
	if !stop() {
		return types.Tab{}, ctx.Err()
	}
	if err != nil {
		cancel()
		return types.Tab{}, fmt.Errorf("failed to open %s: %w", url, err)
	}

	id := chromedp.FromContext(tabCtx).Target.TargetID
	s.mu.Lock()
	s.tabs[id] = &tab{ctx: tabCtx, cancel: cancel, opened: true}
	s.mu.Unlock()

	s.logger.Debug("Opened tab", zap.String("tab", string(id)), zap.String("url", url))
	return types.Tab{ID: string(id), URL: url}, nil
}

// Page returns the live page behind tabID, attaching to the tab on first use.
func (s *Session) Page(ctx context.Context, tabID string) (scraper.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := target.ID(tabID)

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tabs[id]
	if ok && t.page != nil {
		return t.page, nil
	}
	if !ok {
		tabCtx, cancel := chromedp.NewContext(s.browserCtx, chromedp.WithTargetID(id))
		t = &tab{ctx: tabCtx, cancel: cancel}
	}

	page, err := scraper.NewBrowserPage(t.ctx, s.pollInterval)
	if err != nil {
		if !ok {
			t.cancel()
		}
		return nil, fmt.Errorf("failed to attach to tab %s: %w", tabID, err)
	}
	t.page = page
	s.tabs[id] = t
	return page, nil
}

// Close closes the tabs Open created and shuts the browser down, or just
// disconnects when attached.
func (s *Session) Close() {
	s.mu.Lock()
	tabs := s.tabs
	s.tabs = make(map[target.ID]*tab)
	s.mu.Unlock()

	for _, t := range tabs {
		if t.opened {
			t.cancel()
		}
	}
	s.cancel()
}
