package content

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ibeckermayer/icebreaker/internal/bridge"
	"github.com/ibeckermayer/icebreaker/internal/scraper"
)

var (
	// ErrNoTab is returned when a message has no destination tab.
	ErrNoTab = errors.New("no tab ID")
	// ErrHostClosed is returned after Close.
	ErrHostClosed = errors.New("content host closed")
)

// PageSource opens the page behind a browser tab.
type PageSource interface {
	Page(ctx context.Context, tabID string) (scraper.Page, error)
}

// Host delivers relay messages to per-tab content scripts, injecting a
// script into a tab the first time it is messaged.
type Host struct {
	pages       PageSource
	waitTimeout time.Duration
	logger      *zap.Logger

	mu     sync.Mutex
	tabs   map[string]*tabScript
	closed bool
}

// tabScript is the page-context half for one tab. The host only talks to
// it through client.
type tabScript struct {
	observer *Observer
	client   *bridge.Client
	cancel   context.CancelFunc
	served   chan struct{}
}

// NewHost creates a host that opens pages from pages
func NewHost(pages PageSource, waitTimeout time.Duration, logger *zap.Logger) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Host{
		pages:       pages,
		waitTimeout: waitTimeout,
		logger:      logger,
		tabs:        make(map[string]*tabScript),
	}
}

// SendMessage sends req to the content script in tabID and decodes the reply into out.
func (h *Host) SendMessage(ctx context.Context, tabID string, req bridge.Request, out any) error {
	if tabID == "" {
		return ErrNoTab
	}

	script, err := h.inject(ctx, tabID)
	if err != nil {
		return err
	}

	return script.client.Call(ctx, req, out)
}

func (h *Host) inject(ctx context.Context, tabID string) (*tabScript, error) {
	if script, err := h.lookup(tabID); script != nil || err != nil {
		return script, err
	}

	// Attaching talks to the browser; other tabs and Close must not wait on it.
	page, err := h.pages.Page(ctx, tabID)
	if err != nil {
		return nil, fmt.Errorf("failed to open tab %s: %w", tabID, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHostClosed
	}
	if script, ok := h.tabs[tabID]; ok {
		return script, nil
	}

	logger := h.logger.With(zap.String("tab", tabID))
	extractor := scraper.NewExtractor(page, h.waitTimeout, logger)
	observer := NewObserver(page, extractor, logger)

	// The script outlives the request that caused the injection.
	scriptCtx, cancel := context.WithCancel(context.Background())
	observer.Start(scriptCtx)

	mux := bridge.NewMux()
	observer.Register(mux)

	clientEnd, scriptEnd := bridge.Pipe()
	served := make(chan struct{})
	go func() {
		defer close(served)
		if err := bridge.Serve(scriptCtx, scriptEnd, mux); err != nil {
			logger.Error("Content script stopped", zap.Error(err))
		}
	}()

	script := &tabScript{
		observer: observer,
		client:   bridge.NewClient(clientEnd),
		cancel:   cancel,
		served:   served,
	}
	h.tabs[tabID] = script

	logger.Debug("Injected content script")
	return script, nil
}

func (h *Host) lookup(tabID string) (*tabScript, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHostClosed
	}
	return h.tabs[tabID], nil
}

// Close stops every content script.
func (h *Host) Close() error {
	h.mu.Lock()
	tabs := h.tabs
	h.tabs = make(map[string]*tabScript)
	h.closed = true
	h.mu.Unlock()

	for _, script := range tabs {
		script.client.Close()
		script.cancel()
		script.observer.Stop()
		<-script.served
	}
	return nil
}
