package scraper

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/ibeckermayer/icebreaker/internal/types"
)

// DefaultWaitTimeout bounds how long extraction waits for content to render.
const DefaultWaitTimeout = 15 * time.Second

// Extractor pulls profile and post data out of an X profile page
type Extractor struct {
	page        Page
	waitTimeout time.Duration
	logger      *zap.Logger
}

// NewExtractor creates a new extractor for page
func NewExtractor(page Page, waitTimeout time.Duration, logger *zap.Logger) *Extractor {
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{page: page, waitTimeout: waitTimeout, logger: logger}
}

// Profile waits for the profile header and extracts it
func (e *Extractor) Profile(ctx context.Context) (types.Profile, error) {
	doc, err := WaitFor(ctx, e.page, WaitForProfile, e.waitTimeout)
	if err != nil {
		return types.Profile{}, fmt.Errorf("failed to load profile: %w", err)
	}

	profile := ExtractProfile(doc)
	e.logger.Debug("Extracted profile",
		zap.String("username", profile.Username),
		zap.String("followers", profile.FollowersCount),
		zap.String("following", profile.FollowingCount),
	)
	return profile, nil
}

// Posts waits for the timeline and extracts up to count unique posts
func (e *Extractor) Posts(ctx context.Context, count int) ([]types.Post, error) {
	if count <= 0 {
		return []types.Post{}, nil
	}

	doc, err := WaitFor(ctx, e.page, WaitForTweets, e.waitTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}

	posts := ExtractPosts(doc, count)
	e.logger.Debug("Extracted posts", zap.Int("requested", count), zap.Int("found", len(posts)))
	return posts, nil
}

// ExtractProfile reads the profile header from a document snapshot.
// Missing nodes degrade to empty strings, follow counts to "0".
func ExtractProfile(doc *goquery.Document) types.Profile {
	following, followers := extractFollowCounts(doc)
	return types.Profile{
		Username:       extractUsername(doc),
		Bio:            strings.TrimSpace(doc.Find(UserDescription).First().Text()),
		FollowersCount: followers,
		FollowingCount: following,
	}
}

// extractUsername returns the handle after the first "@" of the name node
func extractUsername(doc *goquery.Document) string {
	text := strings.TrimSpace(doc.Find(UserName).First().Text())
	parts := strings.Split(text, "@")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// extractFollowCounts classifies each follow link by its label.
// The last link of each kind wins.
func extractFollowCounts(doc *goquery.Document) (following, followers string) {
	following, followers = "0", "0"

	doc.Find(FollowLinks).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		switch {
		case strings.Contains(text, FollowingLabel):
			following = strings.TrimSpace(strings.Replace(text, FollowingLabel, "", 1))
		case strings.Contains(text, FollowersLabel):
			followers = strings.TrimSpace(strings.Replace(text, FollowersLabel, "", 1))
		}
	})

	return following, followers
}

// ExtractPosts reads up to count posts in document order, skipping posts
// without text and posts whose exact text was already seen.
func ExtractPosts(doc *goquery.Document, count int) []types.Post {
	posts := []types.Post{}
	if count <= 0 {
		return posts
	}

	seen := make(map[string]bool)
	doc.Find(TweetArticle).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		post, ok := extractPost(s)
		if ok && !seen[post.Text] {
			seen[post.Text] = true
			posts = append(posts, post)
		}
		return len(posts) < count
	})

	return posts
}

func extractPost(s *goquery.Selection) (types.Post, bool) {
	text := strings.TrimSpace(s.Find(TweetText).First().Text())
	if text == "" {
		return types.Post{}, false
	}

	timestamp, _ := s.Find(TweetTimestamp).First().Attr("datetime")

	stats := s.Find(StatCounter)
	stat := func(i int) string {
		if v := strings.TrimSpace(stats.Eq(i).Text()); v != "" {
			return v
		}
		return "0"
	}

	return types.Post{
		ID:        PostID(text),
		Text:      text,
		Timestamp: timestamp,
		Comments:  stat(0),
		Retweets:  stat(1),
		Likes:     stat(2),
		Views:     stat(3),
	}, true
}

// PostID derives a stable identifier from post text; the DOM exposes none.
func PostID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
