package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/docqa/internal/config"
	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
	"github.com/kirillkom/docqa/internal/observability/metrics"
)

type ingestFake struct {
	err error
}

func (f ingestFake) Upload(_ context.Context, req ports.UploadRequest) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", io.EOF)
	}

	now := time.Now().UTC()
	return &domain.Document{
		ID:          "doc-1",
		Filename:    req.Filename,
		MimeType:    req.MimeType,
		StoragePath: "doc-1_file.txt",
		BatchID:     req.BatchID,
		SourceLabel: req.SourceLabel,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type answerFake struct {
	err    error
	answer *domain.Answer

	question string
	filter   domain.SearchFilter
}

func (f *answerFake) Answer(_ context.Context, question string, filter domain.SearchFilter) (*domain.Answer, error) {
	f.question = question
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	if f.answer != nil {
		return f.answer, nil
	}
	return &domain.Answer{Text: "ok"}, nil
}

type docsFake struct {
	err error
}

func (f docsFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: "doc-1", Filename: "a", MimeType: "text/plain", StoragePath: "a", Status: domain.StatusReady}, nil
}

type batchFake struct {
	err error
}

func (f batchFake) CreateBatch(_ context.Context, name, description string) (*domain.Batch, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Batch{ID: "batch-1", Name: name, Description: description}, nil
}

func (f batchFake) ListBatches(context.Context) ([]domain.Batch, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Batch{{ID: "batch-1", Name: "default"}}, nil
}

func newTestHandler(cfg config.Config, answerer ports.QueryAnswerer) http.Handler {
	if answerer == nil {
		answerer = &answerFake{}
	}
	return NewRouter(
		cfg,
		ingestFake{},
		answerer,
		docsFake{},
		batchFake{},
		metrics.NewHTTPServerMetrics("api-test"),
	).Handler()
}

func postQuery(t *testing.T, handler http.Handler, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestQueryMapsDomainInvalidInputTo400(t *testing.T) {
	handler := newTestHandler(config.Config{}, &answerFake{
		err: domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("bad query")),
	})

	res := postQuery(t, handler, map[string]any{"question": "test"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestQueryMapsTemporaryFailureTo503(t *testing.T) {
	handler := newTestHandler(config.Config{}, &answerFake{
		err: domain.WrapError(domain.ErrTemporary, "embed query", errors.New("connect refused")),
	})

	res := postQuery(t, handler, map[string]any{"question": "test"})
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestQueryPassesBatchFilterToAnswerer(t *testing.T) {
	answerer := &answerFake{answer: &domain.Answer{Text: "fine"}}
	handler := newTestHandler(config.Config{}, answerer)

	res := postQuery(t, handler, map[string]any{"question": "what is covered", "batch_id": "q3"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if answerer.question != "what is covered" {
		t.Fatalf("unexpected question forwarded: %q", answerer.question)
	}
	if answerer.filter.BatchID != "q3" {
		t.Fatalf("expected batch filter q3, got %q", answerer.filter.BatchID)
	}
}

func TestQueryRejectsBlankQuestion(t *testing.T) {
	handler := newTestHandler(config.Config{}, nil)

	res := postQuery(t, handler, map[string]any{"question": "   "})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetDocumentByIDReturns404ForNotFound(t *testing.T) {
	handler := NewRouter(
		config.Config{},
		ingestFake{},
		&answerFake{},
		docsFake{err: domain.WrapError(domain.ErrDocumentNotFound, "get", errors.New("id=missing"))},
		batchFake{},
		metrics.NewHTTPServerMetrics("api-test"),
	).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestCreateBatchReturns201(t *testing.T) {
	handler := newTestHandler(config.Config{}, nil)

	payload, _ := json.Marshal(map[string]string{"name": "q3", "description": "third quarter"})
	req := httptest.NewRequest(http.MethodPost, "/v1/batches", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.Code)
	}
	var batch map[string]any
	if err := json.NewDecoder(res.Body).Decode(&batch); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if batch["name"] != "q3" {
		t.Fatalf("unexpected batch response: %+v", batch)
	}
}
