package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
)

// DefaultPollInterval is how often a BrowserPage signals subscribers even
// when no DOM event arrived. CDP only reports mutations for nodes the
// client has already requested, so events alone can miss late content.
const DefaultPollInterval = 500 * time.Millisecond

// BrowserPage is a Page backed by a live chromedp tab.
type BrowserPage struct {
	tabCtx context.Context
	feed   mutationFeed
}

// NewBrowserPage attaches to the tab behind tabCtx (a context created by
// chromedp.NewContext) and starts forwarding DOM mutation events.
func NewBrowserPage(tabCtx context.Context, pollInterval time.Duration) (*BrowserPage, error) {
	// First Run attaches to the target; listeners need it.
	if err := chromedp.Run(tabCtx); err != nil {
		return nil, fmt.Errorf("failed to attach to tab: %w", err)
	}

	p := &BrowserPage{tabCtx: tabCtx}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch ev.(type) {
		case *dom.EventChildNodeInserted,
			*dom.EventChildNodeRemoved,
			*dom.EventChildNodeCountUpdated,
			*dom.EventCharacterDataModified,
			*dom.EventAttributeModified,
			*dom.EventSetChildNodes,
			*dom.EventDocumentUpdated:
			p.feed.notify()
		}
	})

	if pollInterval > 0 {
		go p.poll(pollInterval)
	}

	return p, nil
}

func (p *BrowserPage) poll(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.tabCtx.Done():
			return
		case <-ticker.C:
			if p.feed.count() > 0 {
				p.feed.notify()
			}
		}
	}
}

// Document snapshots the tab's outer HTML and parses it.
func (p *BrowserPage) Document(ctx context.Context) (*goquery.Document, error) {
	runCtx, cancel := context.WithCancel(p.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	if err := chromedp.Run(runCtx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to read page html: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func (p *BrowserPage) Subscribe() (<-chan struct{}, func()) {
	return p.feed.subscribe()
}
