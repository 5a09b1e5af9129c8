package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

// EngineConfig tunes the query processing pipeline.
type EngineConfig struct {
	TopKPerSubQuery int
	// CandidateFactor widens each search pass to factor*K candidates so
	// fusion can reshuffle the ranking.
	CandidateFactor int

	FusionStrategy string
	VectorWeight   float64
	KeywordWeight  float64
	RRFK           int

	PerSourceQuota int
	GeneralQuota   int
	GlobalTopN     int

	MaxConcurrency int

	MinSubQueries          int
	MaxSubQueries          int
	DecompositionMaxTokens int

	MinPointsPerSource int
	SynthesisMaxTokens int
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TopKPerSubQuery:        10,
		CandidateFactor:        2,
		FusionStrategy:         FusionWeighted,
		VectorWeight:           0.6,
		KeywordWeight:          0.4,
		RRFK:                   60,
		PerSourceQuota:         10,
		GeneralQuota:           5,
		GlobalTopN:             20,
		MaxConcurrency:         5,
		MinSubQueries:          4,
		MaxSubQueries:          10,
		DecompositionMaxTokens: 800,
		MinPointsPerSource:     4,
		SynthesisMaxTokens:     1500,
	}
}

func (c EngineConfig) normalize() EngineConfig {
	out := c
	def := DefaultEngineConfig()

	if out.TopKPerSubQuery <= 0 {
		out.TopKPerSubQuery = def.TopKPerSubQuery
	}
	if out.CandidateFactor < 1 {
		out.CandidateFactor = def.CandidateFactor
	}
	if out.FusionStrategy != FusionWeighted && out.FusionStrategy != FusionRRF {
		out.FusionStrategy = def.FusionStrategy
	}
	if out.VectorWeight <= 0 || out.KeywordWeight < 0 || out.VectorWeight+out.KeywordWeight != 1.0 {
		out.VectorWeight = def.VectorWeight
		out.KeywordWeight = def.KeywordWeight
	}
	if out.RRFK <= 0 {
		out.RRFK = def.RRFK
	}
	if out.PerSourceQuota <= 0 {
		out.PerSourceQuota = def.PerSourceQuota
	}
	if out.GeneralQuota < 0 {
		out.GeneralQuota = def.GeneralQuota
	}
	if out.GlobalTopN <= 0 {
		out.GlobalTopN = def.GlobalTopN
	}
	if out.MaxConcurrency <= 0 {
		out.MaxConcurrency = def.MaxConcurrency
	}
	if out.MinSubQueries <= 0 {
		out.MinSubQueries = def.MinSubQueries
	}
	if out.MaxSubQueries < out.MinSubQueries {
		out.MaxSubQueries = def.MaxSubQueries
	}
	if out.DecompositionMaxTokens <= 0 {
		out.DecompositionMaxTokens = def.DecompositionMaxTokens
	}
	if out.MinPointsPerSource <= 0 {
		out.MinPointsPerSource = def.MinPointsPerSource
	}
	if out.SynthesisMaxTokens <= 0 {
		out.SynthesisMaxTokens = def.SynthesisMaxTokens
	}
	return out
}

// QueryEngine answers questions by decomposing them, retrieving evidence
// per sub-query over the hybrid index, balancing evidence across the
// sources a comparison names, verifying sufficiency, and synthesizing a
// cited answer. It owns no mutable state and is safe for concurrent use.
type QueryEngine struct {
	embedder ports.Embedder
	index    ports.RetrievalIndex
	model    ports.LanguageModel
	matcher  ports.SourceMatcher
	registry ports.SourceRegistry
	batches  ports.BatchResolver
	cfg      EngineConfig
}

func NewQueryEngine(
	embedder ports.Embedder,
	index ports.RetrievalIndex,
	model ports.LanguageModel,
	matcher ports.SourceMatcher,
	registry ports.SourceRegistry,
	batches ports.BatchResolver,
	cfg EngineConfig,
) *QueryEngine {
	if matcher == nil {
		matcher = NewSubstringMatcher()
	}
	return &QueryEngine{
		embedder: embedder,
		index:    index,
		model:    model,
		matcher:  matcher,
		registry: registry,
		batches:  batches,
		cfg:      cfg.normalize(),
	}
}

func (e *QueryEngine) Answer(ctx context.Context, question string, filter domain.SearchFilter) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer query", errors.New("empty question"))
	}

	filter, err := e.resolveFilter(ctx, filter)
	if err != nil {
		return nil, err
	}

	labels := e.listLabels(ctx, filter.BatchID)
	analysis := analyzeQuery(question, labels)

	subs, err := e.decompose(ctx, question, analysis)
	if err != nil {
		// Degrade: the raw query becomes the sole sub-query.
		slog.Warn("decomposition_fallback", "error", err)
		subs = []domain.SubQuery{{Text: question, Source: domain.SourceGeneral}}
	}
	if len(subs) < e.cfg.MinSubQueries {
		slog.Warn("decomposition_below_minimum", "got", len(subs), "min", e.cfg.MinSubQueries)
	}

	merged := e.retrieveAll(ctx, subs, filter)
	bundle := buildBundle(merged, analysis, e.matcher, e.cfg)
	verification := verifyEvidence(bundle, analysis)

	if !verification.Sufficient {
		answer := refusalAnswer(verification)
		answer.Counts = bundle.Counts
		answer.SubQueries = subs
		return answer, nil
	}

	answer, err := e.synthesize(ctx, question, analysis, bundle)
	if err != nil {
		return nil, err
	}
	answer.Found = verification.Found
	answer.Counts = bundle.Counts
	answer.SubQueries = subs
	return answer, nil
}

// resolveFilter pins an unscoped query to the default batch so source
// registration and index filtering agree on the batch in play.
func (e *QueryEngine) resolveFilter(ctx context.Context, filter domain.SearchFilter) (domain.SearchFilter, error) {
	filter.BatchID = strings.TrimSpace(filter.BatchID)
	if filter.BatchID != "" || e.batches == nil {
		return filter, nil
	}
	id, err := e.batches.DefaultBatchID(ctx)
	if err != nil {
		return filter, fmt.Errorf("resolve default batch: %w", err)
	}
	filter.BatchID = id
	return filter, nil
}

// listLabels loads the batch's registered source labels. Registry outages
// degrade to an empty label set: the query still runs as single-topic.
func (e *QueryEngine) listLabels(ctx context.Context, batchID string) []string {
	if e.registry == nil {
		return nil
	}
	labels, err := e.registry.ListLabels(ctx, batchID)
	if err != nil {
		slog.Warn("source_registry_unavailable", "batch_id", batchID, "error", err)
		return nil
	}
	return labels
}
