package utils

import "strings"

// Truncate returns s truncated to maxLen characters, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// CollapseWhitespace replaces runs of whitespace (including newlines) with a
// single space and trims the result.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Tokenize lowercases s and splits it into terms, stripping surrounding
// punctuation from each term. Terms shorter than 2 characters are dropped.
func Tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]{}<>")
		if len(f) >= 2 {
			terms = append(terms, f)
		}
	}
	return terms
}
