package parser

import (
	"strings"
	"unicode/utf8"
)

// KeywordMatcher expands a topic into search terms and filters headlines
// client-side for providers that have no keyword search.
type KeywordMatcher struct {
	aliases map[string][]string
}

// NewKeywordMatcher indexes aliases by lowercased topic.
func NewKeywordMatcher(aliases map[string][]string) *KeywordMatcher {
	index := make(map[string][]string, len(aliases))
	for topic, words := range aliases {
		lowered := make([]string, 0, len(words))
		for _, w := range words {
			lowered = append(lowered, strings.ToLower(w))
		}
		index[strings.ToLower(strings.TrimSpace(topic))] = lowered
	}
	return &KeywordMatcher{aliases: index}
}

// Terms returns the lowercased topic followed by its aliases.
func (m *KeywordMatcher) Terms(topic string) []string {
	key := strings.ToLower(strings.TrimSpace(topic))
	terms := []string{key}
	if m != nil {
		terms = append(terms, m.aliases[key]...)
	}
	return terms
}

// Matches reports whether any term is a substring of the lowercased text.
func Matches(terms []string, text string) bool {
	lowered := strings.ToLower(text)
	for _, term := range terms {
		if term != "" && strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
