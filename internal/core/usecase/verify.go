package usecase

import (
	"github.com/kirillkom/docqa/internal/core/domain"
)

// verifyEvidence decides whether the bundle can support an answer. It runs
// before any synthesis call so unanswerable queries cost no model tokens.
// Insufficiency is a verdict, not an error.
func verifyEvidence(bundle domain.RetrievalBundle, analysis domain.QueryAnalysis) domain.Verification {
	if len(bundle.Chunks) == 0 {
		return domain.Verification{
			Sufficient: false,
			Reason:     domain.ReasonNoResults,
			Missing:    analysis.Sources,
		}
	}

	if !analysis.IsComparison || len(analysis.Sources) < 2 {
		return domain.Verification{Sufficient: true}
	}

	found := make([]string, 0, len(analysis.Sources))
	missing := make([]string, 0)
	for _, source := range analysis.Sources {
		if count, ok := bundle.CountFor(source); ok && count.Count > 0 {
			found = append(found, source)
			continue
		}
		missing = append(missing, source)
	}

	if len(missing) > 0 {
		return domain.Verification{
			Sufficient: false,
			Reason:     domain.ReasonMissingSources,
			Found:      found,
			Missing:    missing,
		}
	}
	return domain.Verification{Sufficient: true, Found: found}
}
