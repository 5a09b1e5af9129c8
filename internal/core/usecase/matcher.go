package usecase

import (
	"sort"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// SubstringMatcher assigns chunks to sources by case-insensitive substring
// match of the label against the chunk's source label, filename and text.
// Longer labels are tried first so "singlife" is not shadowed by "sing".
type SubstringMatcher struct{}

func NewSubstringMatcher() *SubstringMatcher {
	return &SubstringMatcher{}
}

func (m *SubstringMatcher) Match(chunk domain.Chunk, sources []string) string {
	if len(sources) == 0 {
		return domain.SourceGeneral
	}

	ordered := make([]string, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		if len(ordered[i]) != len(ordered[j]) {
			return len(ordered[i]) > len(ordered[j])
		}
		return ordered[i] < ordered[j]
	})

	label := strings.ToLower(chunk.SourceLabel)
	filename := strings.ToLower(chunk.Filename)
	text := strings.ToLower(chunk.Text)

	for _, source := range ordered {
		s := strings.ToLower(source)
		if s == "" {
			continue
		}
		if label == s || strings.Contains(filename, s) || strings.Contains(text, s) {
			return s
		}
	}
	return domain.SourceGeneral
}
