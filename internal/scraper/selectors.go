package scraper

// X.com profile page selectors
// These are isolated here because X changes their DOM frequently
// Update these when scraping breaks

const (
	// Profile header selectors
	UserName        = `[data-testid="UserName"]`
	UserDescription = `[data-testid="UserDescription"]`
	FollowLinks     = `a[href*="/following"], a[href*="/followers"], a[href*="/verified_followers"]`

	// Timeline selectors
	TweetArticle   = `[data-testid="tweet"]`
	TweetText      = `[data-testid="tweetText"]`
	TweetTimestamp = `time`

	// Engagement counters, in order: comments, retweets, likes, views
	StatCounter = `[data-testid="app-text-transition-container"]`
)

// Follow link labels. Matched as English substrings; localized pages
// will fall back to the "0" defaults.
const (
	FollowingLabel = "Following"
	FollowersLabel = "Followers"
)

// Common wait conditions
const (
	WaitForProfile = UserName
	WaitForTweets  = TweetArticle
)
