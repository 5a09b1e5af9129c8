package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docqa/internal/core/domain"
)

type BatchRepository struct {
	db *sql.DB
}

func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083102)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS batches (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	doc_count INTEGER NOT NULL DEFAULT 0,
	is_default BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_batches_default ON batches(is_default) WHERE is_default;
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// EnsureDefaultBatch creates the default batch if no batch is marked
// default yet. Uploads without an explicit batch land here.
func (r *BatchRepository) EnsureDefaultBatch(ctx context.Context, name string) error {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM batches WHERE is_default LIMIT 1`).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lookup default batch: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO batches (id, name, description, doc_count, is_default, created_at)
VALUES ($1,$2,$3,0,TRUE,$4)
ON CONFLICT DO NOTHING
`, uuid.NewString(), name, "created automatically for unassigned uploads", time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert default batch: %w", err)
	}
	return nil
}

func (r *BatchRepository) Create(ctx context.Context, batch *domain.Batch) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO batches (id, name, description, doc_count, is_default, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, batch.ID, batch.Name, batch.Description, batch.DocCount, batch.IsDefault, batch.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (r *BatchRepository) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, description, doc_count, is_default, created_at
FROM batches
WHERE id = $1
`, id)

	var batch domain.Batch
	err := row.Scan(&batch.ID, &batch.Name, &batch.Description, &batch.DocCount, &batch.IsDefault, &batch.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrBatchNotFound, "get batch", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan batch: %w", err)
	}
	return &batch, nil
}

func (r *BatchRepository) List(ctx context.Context) ([]domain.Batch, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, description, doc_count, is_default, created_at
FROM batches
ORDER BY created_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []domain.Batch
	for rows.Next() {
		var batch domain.Batch
		if err := rows.Scan(&batch.ID, &batch.Name, &batch.Description, &batch.DocCount, &batch.IsDefault, &batch.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return out, nil
}

func (r *BatchRepository) DefaultBatchID(ctx context.Context) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM batches WHERE is_default LIMIT 1`).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.WrapError(domain.ErrBatchNotFound, "default batch", errors.New("no default batch configured"))
		}
		return "", fmt.Errorf("lookup default batch: %w", err)
	}
	return id, nil
}

func (r *BatchRepository) IncrementDocCount(ctx context.Context, id string, delta int) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE batches
SET doc_count = doc_count + $2
WHERE id = $1
`, id, delta)
	if err != nil {
		return fmt.Errorf("increment batch doc count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment batch doc count rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrBatchNotFound, "increment batch doc count", fmt.Errorf("id %s", id))
	}
	return nil
}
