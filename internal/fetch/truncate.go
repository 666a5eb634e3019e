package fetch

import (
	"strings"
	"unicode/utf8"
)

// SmartTruncate cuts text to at most maxChars, preferring a cut at the last
// paragraph break when it falls within the final 20% of the budget, then the
// last sentence-ending punctuation, then the last whitespace, then a hard
// cut.
func SmartTruncate(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}

	window := text[:maxChars]
	floor := maxChars * 4 / 5

	if idx := strings.LastIndex(window, "\n\n"); idx >= floor {
		return strings.TrimRight(window[:idx], " \t\n")
	}
	if idx := lastSentenceEnd(window); idx >= floor {
		return strings.TrimRight(window[:idx+1], " \t\n")
	}
	if idx := strings.LastIndexAny(window, " \t\n"); idx >= floor {
		return strings.TrimRight(window[:idx], " \t\n")
	}

	// Hard cut: back off to a rune boundary so a multi-byte character is
	// never split.
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// lastSentenceEnd returns the index of the last sentence-ending punctuation
// mark in s, or -1.
func lastSentenceEnd(s string) int {
	return strings.LastIndexAny(s, ".!?")
}
