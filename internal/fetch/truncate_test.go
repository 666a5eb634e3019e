package fetch

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSmartTruncateUnderLimit(t *testing.T) {
	if got := SmartTruncate("short text", 100); got != "short text" {
		t.Errorf("got %q", got)
	}
}

func TestSmartTruncateParagraphBoundary(t *testing.T) {
	// Paragraph break at position 90 of a 100-char budget (within last 20%).
	text := strings.Repeat("a", 90) + "\n\n" + strings.Repeat("b", 50)
	got := SmartTruncate(text, 100)
	if got != strings.Repeat("a", 90) {
		t.Errorf("expected cut at paragraph break, got %d chars ending %q", len(got), got[len(got)-5:])
	}
}

func TestSmartTruncateSentenceBoundary(t *testing.T) {
	text := strings.Repeat("a", 89) + ". " + strings.Repeat("b", 50)
	got := SmartTruncate(text, 100)
	if !strings.HasSuffix(got, ".") {
		t.Errorf("expected cut after sentence end, got %q", got[len(got)-5:])
	}
	if len(got) > 100 {
		t.Errorf("len = %d, exceeds budget", len(got))
	}
}

func TestSmartTruncateWordBoundary(t *testing.T) {
	text := strings.Repeat("a", 85) + " " + strings.Repeat("b", 50)
	got := SmartTruncate(text, 100)
	if got != strings.Repeat("a", 85) {
		t.Errorf("expected cut at whitespace, got %d chars", len(got))
	}
}

func TestSmartTruncateHardCut(t *testing.T) {
	text := strings.Repeat("a", 200)
	got := SmartTruncate(text, 100)
	if len(got) != 100 {
		t.Errorf("len = %d, want hard cut at 100", len(got))
	}
}

func TestSmartTruncateHardCutKeepsRunesIntact(t *testing.T) {
	// No paragraph, sentence, or whitespace boundaries, so the hard cut is
	// the only option. 10 bytes lands mid-rune for the 3-byte characters.
	text := strings.Repeat("日本語", 20)
	got := SmartTruncate(text, 10)
	if !utf8.ValidString(got) {
		t.Errorf("truncated output is not valid UTF-8: %q", got)
	}
	if len(got) == 0 || len(got) > 10 {
		t.Errorf("len = %d, want in (0, 10]", len(got))
	}
}

func TestSmartTruncateNeverExceedsBudget(t *testing.T) {
	samples := []string{
		strings.Repeat("word ", 100),
		strings.Repeat("sentence. ", 50),
		strings.Repeat("para\n\n", 40),
		strings.Repeat("x", 500),
	}
	for _, text := range samples {
		for _, budget := range []int{10, 50, 100, 400} {
			if got := SmartTruncate(text, budget); len(got) > budget {
				t.Errorf("budget %d exceeded: len %d", budget, len(got))
			}
		}
	}
}
