package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

// BatchUseCase manages the batch registry: named groups of documents
// indexed and queried together.
type BatchUseCase struct {
	batches ports.BatchRepository
}

func NewBatchUseCase(batches ports.BatchRepository) *BatchUseCase {
	return &BatchUseCase{batches: batches}
}

func (uc *BatchUseCase) CreateBatch(ctx context.Context, name, description string) (*domain.Batch, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create batch", errors.New("empty batch name"))
	}

	batch := &domain.Batch{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   time.Now().UTC(),
	}
	if err := uc.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	return batch, nil
}

func (uc *BatchUseCase) ListBatches(ctx context.Context) ([]domain.Batch, error) {
	batches, err := uc.batches.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}
