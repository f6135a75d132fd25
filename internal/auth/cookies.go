package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/ibeckermayer/icebreaker/internal/store"
)

// CookieKey is the store key holding the X session.
const CookieKey = "sessionCookies"

// ErrNoSession means no X session has been captured.
var ErrNoSession = errors.New("no X session stored; run login first")

// KV is the subset of store.Store the cookie store needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// CookieStore handles storage of X.com session cookies
type CookieStore struct {
	kv  KV
	now func() time.Time
}

// StoredCookies represents the persisted cookie data
type StoredCookies struct {
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// NewCookieStore creates a cookie store on kv
func NewCookieStore(kv KV) *CookieStore {
	return &CookieStore{kv: kv, now: time.Now}
}

func isAuthCookie(c *network.Cookie) bool {
	return c.Name == "auth_token" || c.Name == "ct0"
}

// Save persists cookies
func (cs *CookieStore) Save(ctx context.Context, cookies []*network.Cookie) error {
	// Earliest expiration among auth-related cookies
	var earliestExpiry time.Time
	for _, c := range cookies {
		if isAuthCookie(c) {
			exp := time.Unix(int64(c.Expires), 0)
			if earliestExpiry.IsZero() || exp.Before(earliestExpiry) {
				earliestExpiry = exp
			}
		}
	}

	stored := StoredCookies{
		Cookies:    cookies,
		CapturedAt: cs.now(),
		ExpiresAt:  earliestExpiry,
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	return cs.kv.Set(ctx, CookieKey, data)
}

// Load retrieves the stored session
func (cs *CookieStore) Load(ctx context.Context) (*StoredCookies, error) {
	data, err := cs.kv.Get(ctx, CookieKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}

	var stored StoredCookies
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode session cookies: %w", err)
	}

	return &stored, nil
}

// IsValid checks if stored cookies are still valid
func (cs *CookieStore) IsValid(ctx context.Context) bool {
	stored, err := cs.Load(ctx)
	if err != nil {
		return false
	}

	if cs.now().After(stored.ExpiresAt) {
		return false
	}

	hasAuthToken := false
	hasCT0 := false
	for _, c := range stored.Cookies {
		switch c.Name {
		case "auth_token":
			hasAuthToken = true
		case "ct0":
			hasCT0 = true
		}
	}

	return hasAuthToken && hasCT0
}

// Clear removes stored cookies
func (cs *CookieStore) Clear(ctx context.Context) error {
	return cs.kv.Delete(ctx, CookieKey)
}

// XCookies returns only the x.com related cookies for use in a browser session
func (cs *CookieStore) XCookies(ctx context.Context) ([]*network.Cookie, error) {
	stored, err := cs.Load(ctx)
	if err != nil {
		return nil, err
	}

	var xCookies []*network.Cookie
	for _, c := range stored.Cookies {
		if c.Domain == ".x.com" || c.Domain == "x.com" {
			xCookies = append(xCookies, c)
		}
	}

	return xCookies, nil
}
