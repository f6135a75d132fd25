package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Page is a rendered document that can be snapshotted and watched for changes.
type Page interface {
	// Document returns a snapshot of the current DOM.
	Document(ctx context.Context) (*goquery.Document, error)
	// Subscribe delivers a signal after DOM mutations until cancel is called.
	// Signals are coalesced: a subscriber that is busy sees at most one pending signal.
	Subscribe() (<-chan struct{}, func())
}

// mutationFeed fans mutation signals out to subscribers.
type mutationFeed struct {
	mu   sync.Mutex
	next int
	subs map[int]chan struct{}
}

func (f *mutationFeed) subscribe() (<-chan struct{}, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subs == nil {
		f.subs = make(map[int]chan struct{})
	}
	id := f.next
	f.next++
	ch := make(chan struct{}, 1)
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

// notify never blocks; it is called from chromedp's event goroutine.
func (f *mutationFeed) notify() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (f *mutationFeed) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// StaticPage is an in-memory page. SetHTML swaps the document and notifies
// subscribers, which is how tests simulate content rendering late.
type StaticPage struct {
	mu   sync.RWMutex
	html string
	feed mutationFeed
}

// NewStaticPage creates a page from an HTML string
func NewStaticPage(html string) *StaticPage {
	return &StaticPage{html: html}
}

// Document parses a fresh snapshot, so callers can't mutate the page.
func (p *StaticPage) Document(ctx context.Context) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	html := p.html
	p.mu.RUnlock()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func (p *StaticPage) Subscribe() (<-chan struct{}, func()) {
	return p.feed.subscribe()
}

// SetHTML replaces the document and signals a mutation.
func (p *StaticPage) SetHTML(html string) {
	p.mu.Lock()
	p.html = html
	p.mu.Unlock()

	p.feed.notify()
}

// Subscribers returns the number of live subscriptions.
func (p *StaticPage) Subscribers() int {
	return p.feed.count()
}
