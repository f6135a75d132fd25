package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ibeckermayer/icebreaker/internal/auth"
	"github.com/ibeckermayer/icebreaker/internal/browser"
	"github.com/ibeckermayer/icebreaker/internal/content"
	"github.com/ibeckermayer/icebreaker/internal/relay"
	"github.com/ibeckermayer/icebreaker/internal/store"
)

// errNeedURL is returned when a launched browser has nothing to look at.
var errNeedURL = errors.New("a profile URL is required unless browser.remote_url is set")

// runtime is the set of long-lived components a command works with.
type runtime struct {
	store   *store.Store
	creds   *store.CredentialStore
	session *browser.Session
	host    *content.Host
	relay   *relay.Relay
}

// newRuntime opens the store and, with withBrowser, a browser session.
func (a *app) newRuntime(ctx context.Context, withBrowser bool) (*runtime, error) {
	st, err := a.openStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	rt := &runtime{store: st, creds: store.NewCredentialStore(st)}

	factory, err := a.providerFactory()
	if err != nil {
		rt.Close()
		return nil, err
	}

	opts := relay.Options{PostCount: a.cfg.Relay.PostCount, Hosts: a.cfg.Relay.Hosts}
	if !withBrowser {
		rt.relay = relay.New(nil, nil, rt.creds, factory, opts, a.logger)
		return rt, nil
	}

	rt.session, err = a.openSession(ctx, st)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.host = content.NewHost(rt.session, a.cfg.Browser.WaitTimeout(), a.logger)
	rt.relay = relay.New(rt.session, rt.host, rt.creds, factory, opts, a.logger)
	return rt, nil
}

func (a *app) openSession(ctx context.Context, st *store.Store) (*browser.Session, error) {
	b := a.cfg.Browser
	if b.RemoteURL != "" {
		a.logger.Debug("Attaching to browser", zap.String("url", b.RemoteURL))
		s, err := browser.Attach(ctx, b.RemoteURL, b.PollInterval(), a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to attach to %s: %w", b.RemoteURL, err)
		}
		return s, nil
	}

	cookies, err := auth.NewManager(auth.NewCookieStore(st), a.logger).Cookies(ctx)
	if err != nil {
		a.logger.Warn("Ignoring stored X session", zap.Error(err))
		cookies = nil
	}
	if len(cookies) == 0 {
		a.logger.Info("No X session stored; profiles may be limited until you run login")
	}

	return browser.Launch(ctx, browser.LaunchOptions{
		Headless:     b.Headless,
		PollInterval: b.PollInterval(),
		Cookies:      cookies,
	}, a.logger)
}

// focus opens url when given. A launched browser has no user tabs, so it
// needs one.
func (a *app) focus(ctx context.Context, rt *runtime, url string) error {
	if url == "" {
		if a.cfg.Browser.RemoteURL == "" {
			return errNeedURL
		}
		return nil
	}
	_, err := rt.session.Open(ctx, url)
	return err
}

func (rt *runtime) Close() {
	if rt.host != nil {
		_ = rt.host.Close()
	}
	if rt.session != nil {
		rt.session.Close()
	}
	if rt.store != nil {
		_ = rt.store.Close()
	}
}
