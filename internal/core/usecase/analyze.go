package usecase

import (
	"sort"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// Contrastive connectors that signal a comparison question.
var comparisonCues = []string{
	"compare", "versus", "vs", "vs.", "difference", "different",
	"better than", "worse than", "between", "both",
	"pros and cons", "advantages", "disadvantages",
}

// analyzeQuery classifies a raw query against the registered source
// labels of the batch. It never fails: a query naming no known source
// is a valid single-topic query.
func analyzeQuery(question string, labels []string) domain.QueryAnalysis {
	lower := strings.ToLower(question)

	mentioned := make([]string, 0, 2)
	for _, label := range labels {
		l := strings.TrimSpace(strings.ToLower(label))
		if l == "" {
			continue
		}
		if strings.Contains(lower, l) {
			mentioned = append(mentioned, l)
		}
	}
	sort.Strings(mentioned)
	mentioned = dedupeStrings(mentioned)

	// Comparison intent requires at least one named source: a contrastive
	// phrasing over unknown entities cannot be balanced anyway.
	isComparison := len(mentioned) >= 2 ||
		(len(mentioned) >= 1 && hasComparisonCue(lower))

	return domain.QueryAnalysis{
		IsComparison: isComparison,
		Sources:      mentioned,
	}
}

func hasComparisonCue(lowerQuery string) bool {
	words := splitAlphaNumLower(lowerQuery)
	wordSet := make(map[string]struct{}, len(words))
	for _, w := range words {
		wordSet[w] = struct{}{}
	}
	for _, cue := range comparisonCues {
		if strings.ContainsRune(cue, ' ') {
			if strings.Contains(lowerQuery, cue) {
				return true
			}
			continue
		}
		if _, ok := wordSet[strings.TrimSuffix(cue, ".")]; ok {
			return true
		}
	}
	return false
}

func dedupeStrings(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i > 0 && sorted[i-1] == s {
			continue
		}
		out = append(out, s)
	}
	return out
}
