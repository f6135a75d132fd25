package providers

import (
	"regexp"
	"strings"
)

var enumerationPrefix = regexp.MustCompile(`^\d+\.\s*`)

// ParseSuggestions turns raw model output into at most MaxSuggestions lines.
// Enumeration markers ("1. ") are stripped and blank lines dropped; with
// dropBullets, lines starting with "-" are dropped too. Fewer than
// MaxSuggestions usable lines yields a short list.
func ParseSuggestions(raw string, dropBullets bool) []string {
	suggestions := []string{}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if dropBullets && strings.HasPrefix(line, "-") {
			continue
		}

		line = strings.TrimSpace(enumerationPrefix.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}

		suggestions = append(suggestions, line)
		if len(suggestions) == MaxSuggestions {
			break
		}
	}

	return suggestions
}
