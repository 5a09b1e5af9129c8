package domain

import "fmt"

// SourceGeneral labels chunks that match none of the sources a query names.
const SourceGeneral = "general"

type SearchFilter struct {
	BatchID string
}

// Chunk is the atomic retrievable unit: one slice of an ingested document.
type Chunk struct {
	ID          string `json:"id"`
	DocumentID  string `json:"document_id"`
	Filename    string `json:"filename"`
	SourceLabel string `json:"source_label"`
	BatchID     string `json:"batch_id"`
	ChunkIndex  int    `json:"chunk_index"`
	Text        string `json:"text"`
}

// ChunkID builds the stable chunk identifier used for deduplication
// and deterministic tie-breaking.
func ChunkID(documentID string, chunkIndex int) string {
	return fmt.Sprintf("%s:%d", documentID, chunkIndex)
}

// SearchHit is a chunk with the raw score from a single search pass.
// Scores are comparable only within one result set.
type SearchHit struct {
	Chunk
	Score float64 `json:"score"`
}

// ScoredChunk carries the per-pass scores and the fused score a chunk
// ends up with after hybrid fusion.
type ScoredChunk struct {
	Chunk
	VectorScore  float64 `json:"vector_score"`
	KeywordScore float64 `json:"keyword_score"`
	FusedScore   float64 `json:"fused_score"`
	// SubQueryIndex is the position of the sub-query that first retrieved
	// this chunk, kept for diagnostics.
	SubQueryIndex int `json:"sub_query_index"`
}

// SubQuery is one focused question produced by query decomposition,
// tagged with the source label it targets.
type SubQuery struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// QueryAnalysis is the analyzer verdict for a raw query.
type QueryAnalysis struct {
	IsComparison bool     `json:"is_comparison"`
	Sources      []string `json:"sources"`
}

// SourceCount reports how many chunks a source contributed to a bundle,
// and by how much it fell short of its quota.
type SourceCount struct {
	Source    string `json:"source"`
	Count     int    `json:"count"`
	Shortfall int    `json:"shortfall,omitempty"`
}

// RetrievalBundle is the deduplicated, balanced evidence set handed to
// verification and synthesis.
type RetrievalBundle struct {
	Chunks []ScoredChunk `json:"chunks"`
	Counts []SourceCount `json:"counts"`
}

// CountFor returns the recorded count entry for a source label.
func (b RetrievalBundle) CountFor(source string) (SourceCount, bool) {
	for _, c := range b.Counts {
		if c.Source == source {
			return c, true
		}
	}
	return SourceCount{}, false
}

// Verification reason codes.
const (
	ReasonNoResults      = "no_results"
	ReasonMissingSources = "missing_sources"
)

// Verification is the evidence-sufficiency verdict for a bundle.
type Verification struct {
	Sufficient bool     `json:"sufficient"`
	Reason     string   `json:"reason,omitempty"`
	Found      []string `json:"found,omitempty"`
	Missing    []string `json:"missing,omitempty"`
}

// Citation maps a reference tag used in the answer text to the chunk
// that backs it.
type Citation struct {
	Tag     int    `json:"tag"`
	ChunkID string `json:"chunk_id"`
}

// Answer is the final outcome of a query: either synthesized text with
// citations, or a structured refusal when evidence is insufficient.
type Answer struct {
	Text       string        `json:"text"`
	Refused    bool          `json:"refused"`
	Reason     string        `json:"reason,omitempty"`
	Found      []string      `json:"found,omitempty"`
	Missing    []string      `json:"missing,omitempty"`
	Citations  []Citation    `json:"citations,omitempty"`
	Sources    []ScoredChunk `json:"sources,omitempty"`
	Counts     []SourceCount `json:"counts,omitempty"`
	SubQueries []SubQuery    `json:"sub_queries,omitempty"`
}

// CompletionOptions tune a single language model call.
type CompletionOptions struct {
	System      string
	Temperature float64
	MaxTokens   int
	JSONOutput  bool
}
