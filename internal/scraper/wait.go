package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrWaitTimeout is returned when the awaited element never appears.
	ErrWaitTimeout = errors.New("timed out waiting for element")
	// ErrInvalidTimeout is returned for a non-positive wait timeout.
	ErrInvalidTimeout = errors.New("wait timeout must be positive")
)

// WaitFor blocks until selector matches in page, then returns the matching
// document snapshot. It checks once up front, then re-checks after every
// mutation signal, and detaches its subscription before returning.
func WaitFor(ctx context.Context, page Page, selector string, timeout time.Duration) (*goquery.Document, error) {
	if timeout <= 0 {
		return nil, ErrInvalidTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	doc, found, err := probe(ctx, page, selector)
	if err != nil || found {
		return doc, wrapWaitErr(ctx, selector, err)
	}

	signals, unsubscribe := page.Subscribe()
	defer unsubscribe()

	// Content may have rendered between the first probe and Subscribe.
	doc, found, err = probe(ctx, page, selector)
	if err != nil || found {
		return doc, wrapWaitErr(ctx, selector, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, wrapWaitErr(ctx, selector, ctx.Err())
		case <-signals:
			doc, found, err = probe(ctx, page, selector)
			if err != nil || found {
				return doc, wrapWaitErr(ctx, selector, err)
			}
		}
	}
}

func probe(ctx context.Context, page Page, selector string) (*goquery.Document, bool, error) {
	doc, err := page.Document(ctx)
	if err != nil {
		return nil, false, err
	}
	if doc.Find(selector).Length() == 0 {
		return nil, false, nil
	}
	return doc, true, nil
}

func wrapWaitErr(ctx context.Context, selector string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrWaitTimeout, selector)
	}
	return err
}
