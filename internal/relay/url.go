package relay

import (
	"net/url"
	"regexp"
	"strings"
)

// DefaultHosts are the sites whose profile pages the relay understands.
var DefaultHosts = []string{"x.com", "twitter.com"}

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)

// reservedPaths are first path segments that are site pages, not handles.
var reservedPaths = map[string]bool{
	"home":          true,
	"explore":       true,
	"notifications": true,
	"messages":      true,
	"search":        true,
	"settings":      true,
	"compose":       true,
	"login":         true,
	"logout":        true,
	"signup":        true,
	"i":             true,
	"tos":           true,
	"privacy":       true,
}

// HandleFromURL extracts the profile handle from a profile page URL such as
// https://x.com/janedoe/with_replies. ok is false for other pages and hosts.
func HandleFromURL(raw string, hosts []string) (handle string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "mobile.")
	if !matchHost(host, hosts) {
		return "", false
	}

	segment, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if !handlePattern.MatchString(segment) || reservedPaths[strings.ToLower(segment)] {
		return "", false
	}
	return segment, true
}

func matchHost(host string, hosts []string) bool {
	if len(hosts) == 0 {
		hosts = DefaultHosts
	}
	for _, h := range hosts {
		if strings.EqualFold(host, h) {
			return true
		}
	}
	return false
}
