package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// decompose expands a query into focused sub-queries via the language
// model. Failures wrap domain.ErrDecomposition; the engine degrades to
// the raw query instead of aborting.
func (e *QueryEngine) decompose(ctx context.Context, question string, analysis domain.QueryAnalysis) ([]domain.SubQuery, error) {
	prompt := buildDecompositionPrompt(question, analysis, e.cfg.MinSubQueries, e.cfg.MaxSubQueries)

	raw, err := e.model.Complete(ctx, prompt, domain.CompletionOptions{
		Temperature: 0,
		MaxTokens:   e.cfg.DecompositionMaxTokens,
		JSONOutput:  true,
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrDecomposition, "decompose query", err)
	}

	questions, err := parseDecomposition(raw)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDecomposition, "decompose query", err)
	}

	if len(questions) > e.cfg.MaxSubQueries {
		questions = questions[:e.cfg.MaxSubQueries]
	}

	subs := make([]domain.SubQuery, 0, len(questions))
	for _, q := range questions {
		subs = append(subs, domain.SubQuery{
			Text:   q,
			Source: tagSubQuerySource(q, analysis.Sources),
		})
	}
	return subs, nil
}

func parseDecomposition(raw string) ([]string, error) {
	payload := extractJSONObject(raw)

	var structured struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(payload), &structured); err == nil && len(structured.Questions) > 0 {
		return trimQuestions(structured.Questions), nil
	}

	// Some models answer with a differently named key; accept the first
	// list of strings found, scanning keys in sorted order so repeated
	// parses of the same response pick the same list.
	var generic map[string]any
	if err := json.Unmarshal([]byte(payload), &generic); err != nil {
		return nil, fmt.Errorf("parse decomposition json: %w", err)
	}
	keys := make([]string, 0, len(generic))
	for k := range generic {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		list, ok := generic[k].([]any)
		if !ok || len(list) == 0 {
			continue
		}
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return nil, errors.New("no question list in decomposition response")
}

func trimQuestions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, q := range in {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}

// tagSubQuerySource assigns the sub-query to the mentioned source whose
// label appears in its text. Longer labels win to avoid prefix shadowing.
func tagSubQuerySource(question string, sources []string) string {
	lower := strings.ToLower(question)
	best := domain.SourceGeneral
	bestLen := 0
	for _, source := range sources {
		s := strings.ToLower(source)
		if s != "" && strings.Contains(lower, s) && len(s) > bestLen {
			best = s
			bestLen = len(s)
		}
	}
	return best
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
