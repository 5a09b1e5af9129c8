package ports

import (
	"context"
	"io"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// QueryAnswerer is the inbound contract for answering questions against a
// loaded batch. Safe for repeated and concurrent calls; the context carries
// the caller deadline.
type QueryAnswerer interface {
	Answer(ctx context.Context, question string, filter domain.SearchFilter) (*domain.Answer, error)
}

// UploadRequest carries the metadata of one document upload.
type UploadRequest struct {
	Filename    string
	MimeType    string
	BatchID     string
	SourceLabel string
	Body        io.Reader
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, req UploadRequest) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// BatchService manages batch registry operations exposed to callers.
type BatchService interface {
	CreateBatch(ctx context.Context, name, description string) (*domain.Batch, error)
	ListBatches(ctx context.Context) ([]domain.Batch, error)
}
