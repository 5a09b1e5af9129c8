package usecase

import (
	"strings"
	"unicode"
)

var queryStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {},
}

// stripStopwords prepares a sub-query for keyword search: lowercase,
// stopwords removed. Falls back to the original text when everything
// would be stripped.
func stripStopwords(query string) string {
	words := strings.Fields(strings.ToLower(query))
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := queryStopwords[strings.Trim(w, "?.,!:;")]; ok {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return query
	}
	return strings.Join(kept, " ")
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
