package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer approximates generative-model tokenization for chunk
// sizing and context budgeting. It is a heuristic proxy, not an exact
// tokenizer; every component that sizes text uses the same instance so
// estimates stay consistent across the pipeline.
type Tokenizer struct{}

// NewTokenizer creates a new Tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// Tokenize splits text into word tokens, preserving their original
// form and order.
func (t *Tokenizer) Tokenize(text string) []string {
	return splitWords(text)
}

// CountTokens returns an approximate token count for LLM budget
// estimation. Average English words map to roughly 1.3 subword tokens.
func (t *Tokenizer) CountTokens(text string) int {
	words := splitWords(text)
	if len(words) == 0 {
		return 0
	}
	return int(float64(len(words)) * 1.3)
}

// Tail returns the suffix of text holding its trailing n word tokens.
// Used to seed overlap context between consecutive chunks.
func (t *Tokenizer) Tail(text string, n int) string {
	if n <= 0 || text == "" {
		return ""
	}

	words := splitWords(text)
	if len(words) <= n {
		return strings.TrimSpace(text)
	}

	// Scan backwards for the boundary in front of the n-th word from
	// the end.
	seen := 0
	inWord := false
	runes := []rune(text)
	for i := len(runes) - 1; i >= 0; i-- {
		if isWordRune(runes[i]) {
			if !inWord {
				inWord = true
				seen++
			}
		} else if inWord {
			inWord = false
			if seen >= n {
				return strings.TrimSpace(string(runes[i+1:]))
			}
		}
	}
	return strings.TrimSpace(text)
}

// splitWords splits text into words using unicode word boundaries.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if isWordRune(r) {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
