package usecase

import (
	"sort"

	"github.com/kirillkom/docqa/internal/core/domain"
)

const (
	FusionWeighted = "weighted"
	FusionRRF      = "rrf"
)

// fuseWeighted unions vector and keyword hits by chunk id, max-normalizes
// each score within its own result set and combines them with the given
// weights. Scores are never compared across queries.
func fuseWeighted(vector, keyword []domain.SearchHit, vectorWeight, keywordWeight float64) []domain.ScoredChunk {
	maxVector := maxHitScore(vector)
	maxKeyword := maxHitScore(keyword)

	acc := make(map[string]*domain.ScoredChunk, len(vector)+len(keyword))
	for _, hit := range vector {
		c := ensureCandidate(acc, hit)
		if hit.Score > c.VectorScore {
			c.VectorScore = hit.Score
		}
	}
	for _, hit := range keyword {
		c := ensureCandidate(acc, hit)
		if hit.Score > c.KeywordScore {
			c.KeywordScore = hit.Score
		}
	}

	out := make([]domain.ScoredChunk, 0, len(acc))
	for _, c := range acc {
		var vn, kn float64
		if maxVector > 0 {
			vn = c.VectorScore / maxVector
		}
		if maxKeyword > 0 {
			kn = c.KeywordScore / maxKeyword
		}
		c.FusedScore = vectorWeight*vn + keywordWeight*kn
		out = append(out, *c)
	}

	sortByFusedScore(out)
	return out
}

// fuseRRF is the rank-based alternative: reciprocal rank fusion over the
// two result lists, ignoring raw score magnitudes.
func fuseRRF(vector, keyword []domain.SearchHit, rrfK int) []domain.ScoredChunk {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := make(map[string]*domain.ScoredChunk, len(vector)+len(keyword))
	addList := func(hits []domain.SearchHit, vectorPass bool) {
		for rank, hit := range hits {
			c := ensureCandidate(acc, hit)
			c.FusedScore += 1.0 / float64(rrfK+rank+1)
			if vectorPass {
				if hit.Score > c.VectorScore {
					c.VectorScore = hit.Score
				}
			} else if hit.Score > c.KeywordScore {
				c.KeywordScore = hit.Score
			}
		}
	}
	addList(vector, true)
	addList(keyword, false)

	out := make([]domain.ScoredChunk, 0, len(acc))
	for _, c := range acc {
		out = append(out, *c)
	}
	sortByFusedScore(out)
	return out
}

// sortByFusedScore orders descending by fused score; equal scores break
// ascending by chunk id so results are deterministic.
func sortByFusedScore(chunks []domain.ScoredChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].FusedScore != chunks[j].FusedScore {
			return chunks[i].FusedScore > chunks[j].FusedScore
		}
		return chunks[i].ID < chunks[j].ID
	})
}

func trimCandidates(chunks []domain.ScoredChunk, limit int) []domain.ScoredChunk {
	if limit <= 0 || len(chunks) <= limit {
		return chunks
	}
	return chunks[:limit]
}

func ensureCandidate(acc map[string]*domain.ScoredChunk, hit domain.SearchHit) *domain.ScoredChunk {
	if c, ok := acc[hit.ID]; ok {
		preferRicherChunk(&c.Chunk, hit.Chunk)
		return c
	}
	c := &domain.ScoredChunk{Chunk: hit.Chunk}
	acc[hit.ID] = c
	return c
}

// preferRicherChunk fills payload fields one search pass may omit.
func preferRicherChunk(current *domain.Chunk, candidate domain.Chunk) {
	if current.Text == "" {
		current.Text = candidate.Text
	}
	if current.Filename == "" {
		current.Filename = candidate.Filename
	}
	if current.SourceLabel == "" {
		current.SourceLabel = candidate.SourceLabel
	}
	if current.BatchID == "" {
		current.BatchID = candidate.BatchID
	}
}

func maxHitScore(hits []domain.SearchHit) float64 {
	var m float64
	for _, h := range hits {
		if h.Score > m {
			m = h.Score
		}
	}
	return m
}
