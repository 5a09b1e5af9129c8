package usecase

import (
	"sort"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

// buildBundle deduplicates the merged sub-query results and selects the
// evidence set for synthesis. For comparisons every mentioned source gets
// up to its quota in alphabetical label order; shortfalls are recorded,
// never padded. General chunks fill remaining headroom up to a secondary
// quota. Single-topic queries take the global top N.
func buildBundle(merged []domain.ScoredChunk, analysis domain.QueryAnalysis, matcher ports.SourceMatcher, cfg EngineConfig) domain.RetrievalBundle {
	deduped := dedupeByChunkID(merged)

	if !analysis.IsComparison || len(analysis.Sources) < 2 {
		selected := trimCandidates(deduped, cfg.GlobalTopN)
		return domain.RetrievalBundle{
			Chunks: selected,
			Counts: tallySources(selected, analysis.Sources, matcher, 0),
		}
	}

	groups := make(map[string][]domain.ScoredChunk, len(analysis.Sources)+1)
	for _, chunk := range deduped {
		label := matcher.Match(chunk.Chunk, analysis.Sources)
		groups[label] = append(groups[label], chunk)
	}

	sources := make([]string, len(analysis.Sources))
	copy(sources, analysis.Sources)
	sort.Strings(sources)

	capacity := cfg.PerSourceQuota*len(sources) + cfg.GeneralQuota
	selected := make([]domain.ScoredChunk, 0, capacity)
	counts := make([]domain.SourceCount, 0, len(sources)+1)

	for _, source := range sources {
		group := groups[source]
		sortByFusedScore(group)
		take := cfg.PerSourceQuota
		if len(group) < take {
			take = len(group)
		}
		selected = append(selected, group[:take]...)
		counts = append(counts, domain.SourceCount{
			Source:    source,
			Count:     take,
			Shortfall: cfg.PerSourceQuota - take,
		})
	}

	general := groups[domain.SourceGeneral]
	sortByFusedScore(general)
	headroom := capacity - len(selected)
	if headroom > cfg.GeneralQuota {
		headroom = cfg.GeneralQuota
	}
	if headroom > len(general) {
		headroom = len(general)
	}
	if headroom > 0 {
		selected = append(selected, general[:headroom]...)
		counts = append(counts, domain.SourceCount{Source: domain.SourceGeneral, Count: headroom})
	}

	return domain.RetrievalBundle{Chunks: selected, Counts: counts}
}

// dedupeByChunkID keeps the highest fused score seen for each chunk and
// the earliest originating sub-query index.
func dedupeByChunkID(chunks []domain.ScoredChunk) []domain.ScoredChunk {
	best := make(map[string]domain.ScoredChunk, len(chunks))
	order := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		current, seen := best[chunk.ID]
		if !seen {
			best[chunk.ID] = chunk
			order = append(order, chunk.ID)
			continue
		}
		if chunk.FusedScore > current.FusedScore {
			if current.SubQueryIndex < chunk.SubQueryIndex {
				chunk.SubQueryIndex = current.SubQueryIndex
			}
			best[chunk.ID] = chunk
		}
	}

	out := make([]domain.ScoredChunk, 0, len(best))
	for _, id := range order {
		out = append(out, best[id])
	}
	sortByFusedScore(out)
	return out
}

// tallySources attaches per-source counts to a non-balanced selection so
// verification and callers see the same observability either way.
func tallySources(chunks []domain.ScoredChunk, sources []string, matcher ports.SourceMatcher, quota int) []domain.SourceCount {
	tally := make(map[string]int, len(sources)+1)
	for _, chunk := range chunks {
		tally[matcher.Match(chunk.Chunk, sources)]++
	}

	labels := make([]string, 0, len(tally))
	for label := range tally {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	out := make([]domain.SourceCount, 0, len(labels))
	for _, label := range labels {
		count := domain.SourceCount{Source: label, Count: tally[label]}
		if quota > 0 && label != domain.SourceGeneral && tally[label] < quota {
			count.Shortfall = quota - tally[label]
		}
		out = append(out, count)
	}
	return out
}
