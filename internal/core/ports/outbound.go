package ports

import (
	"context"
	"io"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetChunkCount(ctx context.Context, id string, chunkCount int) error
}

// BatchRepository persists the batch registry.
type BatchRepository interface {
	Create(ctx context.Context, batch *domain.Batch) error
	GetByID(ctx context.Context, id string) (*domain.Batch, error)
	List(ctx context.Context) ([]domain.Batch, error)
	DefaultBatchID(ctx context.Context) (string, error)
	IncrementDocCount(ctx context.Context, id string, delta int) error
}

// SourceRegistry lists the source labels registered for a batch.
type SourceRegistry interface {
	ListLabels(ctx context.Context, batchID string) ([]string, error)
}

// BatchResolver names the batch a query runs against when the caller
// does not pick one.
type BatchResolver interface {
	DefaultBatchID(ctx context.Context) (string, error)
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits text into semantically usable chunks.
type Chunker interface {
	Split(text string) []string
}

// RetrievalIndex is the fixed chunk collection the engine searches.
// Vector and keyword scores are only comparable within one result set.
type RetrievalIndex interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []string, vectors [][]float32) error
	VectorSearch(ctx context.Context, queryVector []float32, k int, filter domain.SearchFilter) ([]domain.SearchHit, error)
	KeywordSearch(ctx context.Context, queryText string, k int, filter domain.SearchFilter) ([]domain.SearchHit, error)
}

// LanguageModel is the generative service used for decomposition and
// synthesis, with different options per call.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error)
}

// SourceMatcher assigns a chunk to one of the sources a query names,
// or domain.SourceGeneral when none match. Injectable so exact-match or
// metadata-tag strategies can replace the substring default.
type SourceMatcher interface {
	Match(chunk domain.Chunk, sources []string) string
}
