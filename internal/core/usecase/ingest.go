package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	batches ports.BatchRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	batches ports.BatchRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:    repo,
		batches: batches,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestDocumentUseCase) Upload(ctx context.Context, req ports.UploadRequest) (*domain.Document, error) {
	batchID, err := uc.resolveBatch(ctx, req.BatchID)
	if err != nil {
		return nil, err
	}

	sourceLabel := strings.ToLower(strings.TrimSpace(req.SourceLabel))
	if sourceLabel == "" {
		sourceLabel = domain.DeriveSourceLabel(req.Filename)
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(req.Filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, req.Body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:          id,
		Filename:    req.Filename,
		MimeType:    req.MimeType,
		StoragePath: storageKey,
		BatchID:     batchID,
		SourceLabel: sourceLabel,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return doc, nil
}

// resolveBatch validates an explicit batch id or falls back to the
// default batch.
func (uc *IngestDocumentUseCase) resolveBatch(ctx context.Context, batchID string) (string, error) {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		id, err := uc.batches.DefaultBatchID(ctx)
		if err != nil {
			return "", fmt.Errorf("resolve default batch: %w", err)
		}
		return id, nil
	}
	if _, err := uc.batches.GetByID(ctx, batchID); err != nil {
		return "", fmt.Errorf("resolve batch %s: %w", batchID, err)
	}
	return batchID, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
