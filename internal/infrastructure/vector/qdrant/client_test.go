package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kirillkom/docqa/internal/core/domain"
)

func TestIndexChunksEnsuresCollectionOncePerVectorSize(t *testing.T) {
	var ensureCalls int32
	var lastUpsert map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs/points":
			_ = json.NewDecoder(r.Body).Decode(&lastUpsert)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "docs")
	doc := &domain.Document{ID: "doc-1", Filename: "a.txt", BatchID: "batch-1", SourceLabel: "acme"}
	chunks := []string{"alpha coverage terms", "beta exclusions"}
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	if err := client.IndexChunks(context.Background(), doc, chunks, vectors); err != nil {
		t.Fatalf("first IndexChunks() error = %v", err)
	}
	if err := client.IndexChunks(context.Background(), doc, chunks, vectors); err != nil {
		t.Fatalf("second IndexChunks() error = %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}

	points, ok := lastUpsert["points"].([]any)
	if !ok || len(points) != 2 {
		t.Fatalf("expected 2 upserted points, got %v", lastUpsert["points"])
	}
	first := points[0].(map[string]any)
	vector := first["vector"].(map[string]any)
	if _, ok := vector[denseVectorName]; !ok {
		t.Fatalf("expected named dense vector, got %v", vector)
	}
	if _, ok := vector[sparseVectorName]; !ok {
		t.Fatalf("expected named sparse vector, got %v", vector)
	}
	payload := first["payload"].(map[string]any)
	if payload["batch_id"] != "batch-1" || payload["source_label"] != "acme" {
		t.Fatalf("expected batch and source payload, got %v", payload)
	}
}

func TestEnsureCollectionDeclaresSparseVectors(t *testing.T) {
	var ensureBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs":
			_ = json.NewDecoder(r.Body).Decode(&ensureBody)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs/points":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "docs")
	doc := &domain.Document{ID: "doc-1", Filename: "a.txt"}
	if err := client.IndexChunks(context.Background(), doc, []string{"a"}, [][]float32{{0.1, 0.2}}); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}

	sparse, ok := ensureBody["sparse_vectors"].(map[string]any)
	if !ok {
		t.Fatalf("expected sparse_vectors in ensure body, got %v", ensureBody)
	}
	if _, ok := sparse[sparseVectorName]; !ok {
		t.Fatalf("expected %s sparse vector config, got %v", sparseVectorName, sparse)
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/docs" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "docs")
	doc := &domain.Document{ID: "doc-1", Filename: "a.txt"}
	err := client.IndexChunks(context.Background(), doc, []string{"a"}, [][]float32{{0.1, 0.2}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := err.Error(); got == "" || !strings.Contains(got, "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}

func queryResponse(t *testing.T) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"result": map[string]any{
			"points": []map[string]any{
				{
					"score": 0.92,
					"payload": map[string]any{
						"doc_id":       "doc-1",
						"filename":     "acme_policy.pdf",
						"source_label": "acme",
						"batch_id":     "batch-1",
						"chunk_index":  3,
						"text":         "dental coverage terms",
					},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return raw
}

func TestVectorSearchUsesDenseVectorAndBatchFilter(t *testing.T) {
	var queryBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/collections/docs/points/query" {
			_ = json.NewDecoder(r.Body).Decode(&queryBody)
			_, _ = w.Write(queryResponse(t))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "docs")
	hits, err := client.VectorSearch(context.Background(), []float32{0.1, 0.2}, 5, domain.SearchFilter{BatchID: "batch-1"})
	if err != nil {
		t.Fatalf("VectorSearch() error = %v", err)
	}

	if queryBody["using"] != denseVectorName {
		t.Fatalf("expected using=%s, got %v", denseVectorName, queryBody["using"])
	}
	if queryBody["filter"] == nil {
		t.Fatalf("expected batch filter, got %v", queryBody)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	hit := hits[0]
	if hit.ID != "doc-1:3" || hit.ChunkIndex != 3 || hit.SourceLabel != "acme" {
		t.Fatalf("unexpected hit payload mapping: %+v", hit)
	}
	if hit.Score != 0.92 {
		t.Fatalf("expected score passthrough, got %f", hit.Score)
	}
}

func TestKeywordSearchUsesSparseVector(t *testing.T) {
	var queryBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/collections/docs/points/query" {
			_ = json.NewDecoder(r.Body).Decode(&queryBody)
			_, _ = w.Write(queryResponse(t))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "docs")
	hits, err := client.KeywordSearch(context.Background(), "dental coverage", 5, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("KeywordSearch() error = %v", err)
	}

	if queryBody["using"] != sparseVectorName {
		t.Fatalf("expected using=%s, got %v", sparseVectorName, queryBody["using"])
	}
	query, ok := queryBody["query"].(map[string]any)
	if !ok {
		t.Fatalf("expected sparse query object, got %v", queryBody["query"])
	}
	if _, ok := query["indices"]; !ok {
		t.Fatalf("expected sparse indices, got %v", query)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
}

func TestKeywordSearchEmptyQueryShortCircuits(t *testing.T) {
	client := New("http://unused", "docs")
	hits, err := client.KeywordSearch(context.Background(), "...", 5, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("KeywordSearch() error = %v", err)
	}
	if hits != nil {
		t.Fatalf("expected no hits without tokens, got %v", hits)
	}
}
