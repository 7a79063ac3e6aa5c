package search

import (
	"unicode"
)

// Highlight returns a window of at most maxLen runes of content around the
// first case-insensitive occurrence of query. Without a match the content is
// truncated from the start. Cut ends are marked with "...".
func Highlight(content, query string, maxLen int) string {
	text := []rune(content)
	if maxLen <= 0 || len(text) <= maxLen {
		return content
	}

	start := 0
	if at := indexFold(text, []rune(query)); at >= 0 {
		qLen := len([]rune(query))
		// Center the match, keeping it whole when it fits.
		start = at - (maxLen-qLen)/2
		if qLen >= maxLen {
			start = at
		}
		if start < 0 {
			start = 0
		}
		if start+maxLen > len(text) {
			start = len(text) - maxLen
		}
	}
	end := start + maxLen

	out := string(text[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out += "..."
	}
	return out
}

// indexFold returns the rune index of the first case-insensitive occurrence
// of sub in s, or -1.
func indexFold(s, sub []rune) int {
	if len(sub) == 0 || len(sub) > len(s) {
		return -1
	}
outer:
	for i := 0; i+len(sub) <= len(s); i++ {
		for j, r := range sub {
			if foldRune(s[i+j]) != foldRune(r) {
				continue outer
			}
		}
		return i
	}
	return -1
}

func foldRune(r rune) rune {
	return unicode.ToLower(unicode.ToUpper(r))
}
