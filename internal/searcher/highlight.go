package searcher

import (
	"strings"
	"unicode/utf8"
)

const (
	highlightContext = 50
	maxHighlights    = 3
)

// Highlights extracts short excerpts of content around every
// case-insensitive occurrence of each query word: up to 50 characters of
// context on each side, "..." marking clipped edges. Snippets are
// deduplicated by exact string equality in first-seen order and capped at 3.
func Highlights(content string, queryWords []string) []string {
	lower := strings.ToLower(content)
	highlights := make([]string, 0, maxHighlights)
	seen := make(map[string]struct{})

	for _, word := range queryWords {
		if word == "" {
			continue
		}
		for from := 0; ; {
			pos := strings.Index(lower[from:], word)
			if pos < 0 {
				break
			}
			pos += from

			start := runeBack(content, pos, highlightContext)
			end := runeForward(content, pos+len(word), highlightContext)

			snippet := content[start:end]
			if start > 0 {
				snippet = "..." + snippet
			}
			if end < len(content) {
				snippet = snippet + "..."
			}

			if _, dup := seen[snippet]; !dup {
				seen[snippet] = struct{}{}
				highlights = append(highlights, snippet)
			}
			from = pos + 1
		}
	}

	if len(highlights) > maxHighlights {
		highlights = highlights[:maxHighlights]
	}
	return highlights
}

// runeBack moves i back by n runes, counting characters rather than bytes
// so non-ASCII content gets the same amount of context.
func runeBack(s string, i, n int) int {
	i = runeFloor(s, i)
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return i
}

// runeForward moves i forward by n runes.
func runeForward(s string, i, n int) int {
	i = runeCeil(s, i)
	for ; n > 0 && i < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

// runeFloor clamps i into [0, len(s)] and moves it back to the nearest rune
// boundary so snippets never split a UTF-8 sequence.
func runeFloor(s string, i int) int {
	if i <= 0 {
		return 0
	}
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// runeCeil clamps i into [0, len(s)] and moves it forward to the nearest
// rune boundary.
func runeCeil(s string, i int) int {
	if i >= len(s) {
		return len(s)
	}
	if i <= 0 {
		return 0
	}
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}
