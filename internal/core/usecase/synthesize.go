package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// synthesize turns a verified bundle into a cited answer through one
// language model call. The citation contract lives in the prompt; the
// tags the model actually used are extracted back out so callers can
// validate them against the bundle.
func (e *QueryEngine) synthesize(ctx context.Context, question string, analysis domain.QueryAnalysis, bundle domain.RetrievalBundle) (*domain.Answer, error) {
	prompt := buildSynthesisPrompt(question, analysis, bundle, e.cfg.MinPointsPerSource)

	text, err := e.model.Complete(ctx, prompt, domain.CompletionOptions{
		System:      synthesisSystemPrompt,
		Temperature: 0.1,
		MaxTokens:   e.cfg.SynthesisMaxTokens,
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrModel, "synthesize answer", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.WrapError(domain.ErrModel, "synthesize answer", errors.New("empty completion"))
	}

	return &domain.Answer{
		Text:      text,
		Citations: extractCitations(text, bundle),
		Sources:   bundle.Chunks,
	}, nil
}

var citationTagPattern = regexp.MustCompile(`\[Sources?\s+([0-9][0-9,\s]*)`)

// extractCitations collects the reference tags used in the answer text and
// maps each to the bundle chunk it enumerates. Tags outside the bundle
// range are a contract violation by the model and are dropped with a log.
func extractCitations(text string, bundle domain.RetrievalBundle) []domain.Citation {
	seen := make(map[int]struct{})
	for _, match := range citationTagPattern.FindAllStringSubmatch(text, -1) {
		for _, field := range strings.Split(match[1], ",") {
			tag, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil {
				continue
			}
			if tag < 1 || tag > len(bundle.Chunks) {
				slog.Warn("citation_tag_out_of_range", "tag", tag, "bundle_size", len(bundle.Chunks))
				continue
			}
			seen[tag] = struct{}{}
		}
	}

	tags := make([]int, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Ints(tags)

	out := make([]domain.Citation, 0, len(tags))
	for _, tag := range tags {
		out = append(out, domain.Citation{Tag: tag, ChunkID: bundle.Chunks[tag-1].ID})
	}
	return out
}

// refusalAnswer builds the deterministic no-model-call refusal from the
// verification verdict.
func refusalAnswer(verification domain.Verification) *domain.Answer {
	answer := &domain.Answer{
		Refused: true,
		Reason:  verification.Reason,
		Found:   verification.Found,
		Missing: verification.Missing,
	}

	switch verification.Reason {
	case domain.ReasonMissingSources:
		found := "none"
		if len(verification.Found) > 0 {
			found = strings.Join(verification.Found, ", ")
		}
		answer.Text = fmt.Sprintf(
			"I can only find information about %s. Cannot make a fair comparison without information about %s.",
			found,
			strings.Join(verification.Missing, ", "),
		)
	default:
		answer.Text = "No relevant documents found for your question."
	}
	return answer
}
