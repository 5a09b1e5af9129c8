package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// retrieveAll fans sub-queries out over a bounded worker pool and merges
// the per-sub-query results in sub-query order. Failed sub-queries are
// skipped and logged; once the context is done no new sub-query is
// dispatched and whatever completed is used as partial evidence.
func (e *QueryEngine) retrieveAll(ctx context.Context, subs []domain.SubQuery, filter domain.SearchFilter) []domain.ScoredChunk {
	if len(subs) == 0 {
		return nil
	}

	workers := e.cfg.MaxConcurrency
	if len(subs) < workers {
		workers = len(subs)
	}

	type task struct {
		idx int
		sub domain.SubQuery
	}
	tasks := make(chan task)
	results := make(chan struct {
		idx    int
		chunks []domain.ScoredChunk
	}, len(subs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				chunks, err := e.retrieveSubQuery(ctx, t.idx, t.sub, filter)
				if err != nil {
					slog.Warn("sub_query_skipped",
						"index", t.idx,
						"sub_query", t.sub.Text,
						"source", t.sub.Source,
						"error", err,
					)
					continue
				}
				results <- struct {
					idx    int
					chunks []domain.ScoredChunk
				}{t.idx, chunks}
			}
		}()
	}

dispatch:
	for i, sub := range subs {
		if err := ctx.Err(); err != nil {
			slog.Warn("sub_query_dispatch_stopped", "dispatched", i, "total", len(subs), "error", err)
			break
		}
		select {
		case <-ctx.Done():
			slog.Warn("sub_query_dispatch_stopped", "dispatched", i, "total", len(subs), "error", ctx.Err())
			break dispatch
		case tasks <- task{idx: i, sub: sub}:
		}
	}
	close(tasks)
	wg.Wait()
	close(results)

	byIndex := make([][]domain.ScoredChunk, len(subs))
	for r := range results {
		byIndex[r.idx] = r.chunks
	}

	merged := make([]domain.ScoredChunk, 0, len(subs)*e.cfg.TopKPerSubQuery)
	for _, chunks := range byIndex {
		merged = append(merged, chunks...)
	}
	return merged
}

// retrieveSubQuery runs the hybrid retrieval for one sub-query: embed,
// vector search, keyword search, fuse, top-K. Empty results are valid;
// service failures skip the sub-query.
func (e *QueryEngine) retrieveSubQuery(ctx context.Context, idx int, sub domain.SubQuery, filter domain.SearchFilter) ([]domain.ScoredChunk, error) {
	k := e.cfg.TopKPerSubQuery
	candidates := k * e.cfg.CandidateFactor

	queryVector, err := e.embedder.EmbedQuery(ctx, sub.Text)
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed sub-query", err)
	}

	vectorHits, err := e.index.VectorSearch(ctx, queryVector, candidates, filter)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalIndex, "vector search", err)
	}

	keywordHits, err := e.index.KeywordSearch(ctx, stripStopwords(sub.Text), candidates, filter)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalIndex, "keyword search", err)
	}

	var fused []domain.ScoredChunk
	switch e.cfg.FusionStrategy {
	case FusionRRF:
		fused = fuseRRF(vectorHits, keywordHits, e.cfg.RRFK)
	default:
		fused = fuseWeighted(vectorHits, keywordHits, e.cfg.VectorWeight, e.cfg.KeywordWeight)
	}

	fused = trimCandidates(fused, k)
	for i := range fused {
		fused[i].SubQueryIndex = idx
	}
	return fused, nil
}
