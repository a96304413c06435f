package session

import "strings"

// DefaultSearchTokens are Bengali interrogatives (what, why, how, when,
// where, how much, who, whose, of what, which).
var DefaultSearchTokens = []string{
	"কী", "কি", "কেন", "কিভাবে", "কখন", "কোথায়",
	"কত", "কে", "কাদের", "কিসের", "কোন",
}

// Heuristic decides whether an utterance should be answered with a web search.
type Heuristic struct {
	tokens []string
}

// NewHeuristic builds a heuristic over tokens, falling back to
// DefaultSearchTokens when none are usable.
func NewHeuristic(tokens ...string) Heuristic {
	cleaned := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.ToLower(strings.TrimSpace(token))
		if token != "" {
			cleaned = append(cleaned, token)
		}
	}
	if len(cleaned) == 0 {
		for _, token := range DefaultSearchTokens {
			cleaned = append(cleaned, strings.ToLower(token))
		}
	}
	return Heuristic{tokens: cleaned}
}

// ShouldSearch reports whether any token occurs in text, ignoring case.
func (h Heuristic) ShouldSearch(text string) bool {
	tokens := h.tokens
	if len(tokens) == 0 {
		tokens = NewHeuristic().tokens
	}
	lower := strings.ToLower(text)
	for _, token := range tokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// Tokens returns a copy of the active token list.
func (h Heuristic) Tokens() []string {
	return append([]string(nil), h.tokens...)
}

// ShouldSearch applies the default Bengali heuristic.
func ShouldSearch(text string) bool {
	return NewHeuristic().ShouldSearch(text)
}
