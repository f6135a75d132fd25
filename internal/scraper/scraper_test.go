package scraper

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const profileHeader = `
<div data-testid="UserName"><span>Jane Doe</span> <span>@janedoe</span></div>
<div data-testid="UserDescription">  coffee, code &amp; cats  </div>
<a href="/janedoe/following"><span>89</span> <span>Following</span></a>
<a href="/janedoe/verified_followers"><span>1,204</span> <span>Followers</span></a>
`

func tweetHTML(text string, stats ...string) string {
	var sb strings.Builder
	sb.WriteString(`<article data-testid="tweet">`)
	sb.WriteString(`<time datetime="2024-05-01T10:00:00.000Z">May 1</time>`)
	if text != "" {
		sb.WriteString(fmt.Sprintf(`<div data-testid="tweetText"><span>%s</span></div>`, text))
	}
	for _, s := range stats {
		sb.WriteString(fmt.Sprintf(`<span data-testid="app-text-transition-container"><span>%s</span></span>`, s))
	}
	sb.WriteString(`</article>`)
	return sb.String()
}

func page(body ...string) string {
	return "<html><body>" + strings.Join(body, "\n") + "</body></html>"
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractProfile(t *testing.T) {
	profile := ExtractProfile(mustDoc(t, page(profileHeader)))

	assert.Equal(t, "janedoe", profile.Username)
	assert.Equal(t, "coffee, code & cats", profile.Bio)
	assert.Equal(t, "1,204", profile.FollowersCount)
	assert.Equal(t, "89", profile.FollowingCount)
}

func TestExtractProfile_Username(t *testing.T) {
	tests := []struct {
		name string
		node string
		want string
	}{
		{"display name and handle", `<div data-testid="UserName">Jane Doe @janedoe</div>`, "janedoe"},
		{"no handle", `<div data-testid="UserName">Jane Doe</div>`, ""},
		{"missing node", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := ExtractProfile(mustDoc(t, page(tt.node)))
			assert.Equal(t, tt.want, profile.Username)
		})
	}
}

func TestExtractProfile_MissingFieldsDefault(t *testing.T) {
	profile := ExtractProfile(mustDoc(t, page(`<div data-testid="UserName">@solo</div>`)))

	assert.Equal(t, "solo", profile.Username)
	assert.Empty(t, profile.Bio)
	assert.Equal(t, "0", profile.FollowersCount)
	assert.Equal(t, "0", profile.FollowingCount)
}

func TestExtractProfile_LastFollowLinkWins(t *testing.T) {
	html := page(
		`<a href="/a/followers">10 Followers</a>`,
		`<a href="/a/verified_followers">12 Followers</a>`,
		`<a href="/a/following">3 Following</a>`,
	)
	profile := ExtractProfile(mustDoc(t, html))

	assert.Equal(t, "12", profile.FollowersCount)
	assert.Equal(t, "3", profile.FollowingCount)
}

func TestExtractPosts(t *testing.T) {
	html := page(
		tweetHTML("first post", "4", "2", "17", "1.2K"),
		tweetHTML("second post", "1"),
	)
	posts := ExtractPosts(mustDoc(t, html), 10)

	require.Len(t, posts, 2)
	first := posts[0]
	assert.Equal(t, "first post", first.Text)
	assert.Equal(t, PostID("first post"), first.ID)
	assert.Equal(t, "2024-05-01T10:00:00.000Z", first.Timestamp)
	assert.Equal(t, "4", first.Comments)
	assert.Equal(t, "2", first.Retweets)
	assert.Equal(t, "17", first.Likes)
	assert.Equal(t, "1.2K", first.Views)

	second := posts[1]
	assert.Equal(t, "1", second.Comments)
	assert.Equal(t, "0", second.Retweets)
	assert.Equal(t, "0", second.Likes)
	assert.Equal(t, "0", second.Views)
}

func TestExtractPosts_DeduplicatesByText(t *testing.T) {
	html := page(
		tweetHTML("alpha"),
		tweetHTML("beta"),
		tweetHTML("alpha"),
		tweetHTML("gamma"),
		tweetHTML("alpha"),
	)
	posts := ExtractPosts(mustDoc(t, html), 5)

	require.Len(t, posts, 3)
	assert.Equal(t, "alpha", posts[0].Text)
	assert.Equal(t, "beta", posts[1].Text)
	assert.Equal(t, "gamma", posts[2].Text)
}

func TestExtractPosts_WhitespaceVariantsAreDistinct(t *testing.T) {
	html := page(tweetHTML("hello  world"), tweetHTML("hello world"))
	posts := ExtractPosts(mustDoc(t, html), 5)
	assert.Len(t, posts, 2)
}

func TestExtractPosts_SkipsEmptyBody(t *testing.T) {
	html := page(
		tweetHTML("", "9", "9", "9", "9"),
		tweetHTML("   "),
		tweetHTML("real one"),
	)
	posts := ExtractPosts(mustDoc(t, html), 5)

	require.Len(t, posts, 1)
	assert.Equal(t, "real one", posts[0].Text)
}

func TestExtractPosts_CountBound(t *testing.T) {
	var tweets []string
	for i := 0; i < 6; i++ {
		tweets = append(tweets, tweetHTML(fmt.Sprintf("post %d", i)))
	}
	tweets = append(tweets, tweetHTML("post 0"), tweetHTML(""))
	doc := mustDoc(t, page(tweets...))

	for n := 0; n <= 9; n++ {
		posts := ExtractPosts(doc, n)
		assert.Len(t, posts, min(n, 6), "count %d", n)
		for i, p := range posts {
			assert.Equal(t, fmt.Sprintf("post %d", i), p.Text)
		}
	}
}

func TestExtractor_Profile(t *testing.T) {
	e := NewExtractor(NewStaticPage(page(profileHeader)), time.Second, zap.NewNop())

	profile, err := e.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "janedoe", profile.Username)
}

func TestExtractor_PostsWaitsForTimeline(t *testing.T) {
	p := NewStaticPage(page(profileHeader))
	e := NewExtractor(p, 2*time.Second, zap.NewNop())

	go func() {
		time.Sleep(50 * time.Millisecond)
		p.SetHTML(page(profileHeader, tweetHTML("late post")))
	}()

	posts, err := e.Posts(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "late post", posts[0].Text)
}

func TestExtractor_PostsZeroCountDoesNotWait(t *testing.T) {
	e := NewExtractor(NewStaticPage(page()), time.Millisecond, zap.NewNop())

	posts, err := e.Posts(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestExtractor_ProfileTimeout(t *testing.T) {
	e := NewExtractor(NewStaticPage(page()), 30*time.Millisecond, zap.NewNop())

	_, err := e.Profile(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWaitTimeout)
}
