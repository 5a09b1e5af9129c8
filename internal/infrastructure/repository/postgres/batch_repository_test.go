package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/docqa/internal/core/domain"
)

func newBatchRepoWithMock(t *testing.T) (*BatchRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &BatchRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestBatchGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newBatchRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, name, description, doc_count").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDefaultBatchIDWithoutDefaultReturnsNotFound(t *testing.T) {
	repo, mock, done := newBatchRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id FROM batches WHERE is_default").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.DefaultBatchID(context.Background())
	if !domain.IsKind(err, domain.ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureDefaultBatchSkipsInsertWhenPresent(t *testing.T) {
	repo, mock, done := newBatchRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id FROM batches WHERE is_default").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("batch-1"))

	if err := repo.EnsureDefaultBatch(context.Background(), "default"); err != nil {
		t.Fatalf("EnsureDefaultBatch() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureDefaultBatchInsertsWhenMissing(t *testing.T) {
	repo, mock, done := newBatchRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id FROM batches WHERE is_default").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO batches").
		WithArgs(sqlmock.AnyArg(), "default", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.EnsureDefaultBatch(context.Background(), "default"); err != nil {
		t.Fatalf("EnsureDefaultBatch() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestIncrementDocCountReturnsNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newBatchRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE batches").
		WithArgs("missing", 1).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.IncrementDocCount(context.Background(), "missing", 1)
	if !domain.IsKind(err, domain.ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListBatchesScansRows(t *testing.T) {
	repo, mock, done := newBatchRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "name", "description", "doc_count", "is_default", "created_at"}).
		AddRow("b2", "fresh", "", 0, false, now).
		AddRow("b1", "default", "", 4, true, now.Add(-time.Hour))
	mock.ExpectQuery("SELECT id, name, description, doc_count").
		WillReturnRows(rows)

	batches, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(batches) != 2 || batches[0].ID != "b2" || !batches[1].IsDefault {
		t.Fatalf("unexpected batches: %+v", batches)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
