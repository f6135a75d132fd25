// Package content is the page-side half of the pipeline: it owns the page,
// the extractor and the responder answering relay requests.
package content

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ibeckermayer/icebreaker/internal/bridge"
	"github.com/ibeckermayer/icebreaker/internal/scraper"
	"github.com/ibeckermayer/icebreaker/internal/types"
)

// Observer owns one page's extractor and its long-lived mutation subscription.
type Observer struct {
	page      scraper.Page
	extractor *scraper.Extractor
	logger    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewObserver creates an observer for page
func NewObserver(page scraper.Page, extractor *scraper.Extractor, logger *zap.Logger) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{page: page, extractor: extractor, logger: logger}
}

// Start subscribes to page mutations. Calling Start twice is a no-op.
func (o *Observer) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	signals, unsubscribe := o.page.Subscribe()
	o.cancel = cancel
	o.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case <-signals:
				o.handleMutation()
			}
		}
	}(o.done)
}

// Stop detaches the mutation subscription and waits for it to drain.
func (o *Observer) Stop() {
	o.mu.Lock()
	cancel, done := o.cancel, o.done
	o.cancel, o.done = nil, nil
	o.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// handleMutation is the hook for reacting to page changes. Extraction
// waits on its own subscriptions, so nothing happens here yet.
func (o *Observer) handleMutation() {}

// Register binds the profile and tweet handlers on mux.
func (o *Observer) Register(mux *bridge.Mux) {
	mux.Handle(bridge.TypeGetProfileData, o.getProfileData)
	mux.Handle(bridge.TypeGetTweets, o.getTweets)
}

func (o *Observer) getProfileData(ctx context.Context, _ bridge.Request) (any, error) {
	profile, err := o.extractor.Profile(ctx)
	if err != nil {
		o.logger.Warn("Error extracting profile data", zap.Error(err))
		return nil, err
	}
	return profile, nil
}

func (o *Observer) getTweets(ctx context.Context, req bridge.Request) (any, error) {
	posts, err := o.extractor.Posts(ctx, req.Count)
	if err != nil {
		o.logger.Warn("Error extracting tweets", zap.Int("count", req.Count), zap.Error(err))
		return nil, err
	}
	if posts == nil {
		posts = []types.Post{}
	}
	return posts, nil
}
