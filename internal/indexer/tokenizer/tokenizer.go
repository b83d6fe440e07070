// Package tokenizer provides text tokenisation for the search index. It
// lower-cases input and extracts maximal runs of word characters (letters,
// digits, underscore). Every occurrence is kept: no stemming, no stop-word
// removal, no per-message deduplication — search scoring and the
// rebuild-equals-incremental index invariant both depend on the raw token
// stream.
package tokenizer

import (
	"strings"
	"unicode"
)

// Token is a single normalised term and its 0-based position in the token
// sequence of the original text.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into lowercased word-character tokens.
func Tokenize(text string) []Token {
	words := Terms(text)
	tokens := make([]Token, len(words))
	for i, word := range words {
		tokens[i] = Token{Term: word, Position: i}
	}
	return tokens
}

// Terms returns just the lowercased token strings of text, in order.
func Terms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
