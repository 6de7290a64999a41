package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kirillkom/manual-rag/internal/core/domain"
)

func sampleChunks() ([]domain.Chunk, [][]float32) {
	chunks := []domain.Chunk{
		{ID: "manual.pdf:1:0", Source: "manual.pdf", Page: 1, Index: 0, Text: "turn the valve", Hash: "h1"},
		{ID: "manual.pdf:1:1", Source: "manual.pdf", Page: 1, Index: 1, Text: "wear gloves", Hash: "h2"},
	}
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}
	return chunks, vectors
}

func TestUpsertChunksEnsuresCollectionOncePerVectorSize(t *testing.T) {
	var ensureCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/manual_chunks":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/manual_chunks/points":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "manual_chunks")
	chunks, vectors := sampleChunks()

	if err := client.UpsertChunks(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("first UpsertChunks() error = %v", err)
	}
	if err := client.UpsertChunks(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("second UpsertChunks() error = %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
}

func TestUpsertChunksUsesDeterministicPointIDs(t *testing.T) {
	var captured struct {
		Points []struct {
			ID      string         `json:"id"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/manual_chunks":
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/manual_chunks/points":
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Fatalf("decode points: %v", err)
			}
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "manual_chunks")
	chunks, vectors := sampleChunks()
	if err := client.UpsertChunks(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("UpsertChunks() error = %v", err)
	}

	if len(captured.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(captured.Points))
	}
	if captured.Points[0].ID != pointID("manual.pdf:1:0") {
		t.Errorf("point id = %q, want id derived from chunk id", captured.Points[0].ID)
	}
	if captured.Points[0].ID == captured.Points[1].ID {
		t.Errorf("expected distinct point ids")
	}
	payload := captured.Points[0].Payload
	if payload["chunk_id"] != "manual.pdf:1:0" || payload["hash"] != "h1" {
		t.Errorf("unexpected payload %v", payload)
	}
}

func TestSearchDecodesPayload(t *testing.T) {
	var gotVectorName string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/manual_chunks/points/search" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Vector struct {
				Name string `json:"name"`
			} `json:"vector"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotVectorName = req.Vector.Name
		_, _ = w.Write([]byte(`{"result":[{"score":0.91,"payload":{"chunk_id":"m.pdf:2:1","source":"m.pdf","page":2,"chunk_index":1,"text":"torque to 40 Nm","hash":"h"}}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "manual_chunks")
	hits, err := client.Search(context.Background(), []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if gotVectorName != denseVectorName {
		t.Errorf("vector name = %q, want %q", gotVectorName, denseVectorName)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	hit := hits[0]
	if hit.ID != "m.pdf:2:1" || hit.Source != "m.pdf" || hit.Page != 2 || hit.ChunkIndex != 1 {
		t.Errorf("unexpected hit %+v", hit)
	}
	if hit.Score != 0.91 || hit.Text != "torque to 40 Nm" {
		t.Errorf("unexpected hit %+v", hit)
	}
}

func TestSearchLexicalUsesSparseVector(t *testing.T) {
	var gotVectorName string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Vector struct {
				Name   string `json:"name"`
				Vector struct {
					Indices []uint32 `json:"indices"`
				} `json:"vector"`
			} `json:"vector"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotVectorName = req.Vector.Name
		if len(req.Vector.Vector.Indices) == 0 {
			t.Errorf("expected sparse indices in request")
		}
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "manual_chunks")
	if _, err := client.SearchLexical(context.Background(), "valve torque", 5); err != nil {
		t.Fatalf("SearchLexical() error = %v", err)
	}
	if gotVectorName != sparseVectorName {
		t.Errorf("vector name = %q, want %q", gotVectorName, sparseVectorName)
	}
}

func TestSearchLexicalSkipsEmptyQuery(t *testing.T) {
	client := New("http://unused", "manual_chunks")
	hits, err := client.SearchLexical(context.Background(), "!!!", 5)
	if err != nil {
		t.Fatalf("SearchLexical() error = %v", err)
	}
	if hits != nil {
		t.Errorf("expected no hits for tokenless query, got %v", hits)
	}
}

func TestExistingHashesScrollsAllPages(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/manual_chunks/points/scroll" {
			http.NotFound(w, r)
			return
		}
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			_, _ = w.Write([]byte(`{"result":{"points":[{"payload":{"chunk_id":"a:0:0","hash":"h1"}}],"next_page_offset":"cursor-1"}}`))
		default:
			_, _ = w.Write([]byte(`{"result":{"points":[{"payload":{"chunk_id":"a:0:1","hash":"h2"}}],"next_page_offset":null}}`))
		}
	}))
	defer server.Close()

	client := New(server.URL, "manual_chunks")
	hashes, err := client.ExistingHashes(context.Background())
	if err != nil {
		t.Fatalf("ExistingHashes() error = %v", err)
	}
	if len(hashes) != 2 || hashes["a:0:0"] != "h1" || hashes["a:0:1"] != "h2" {
		t.Errorf("unexpected hashes %v", hashes)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected 2 scroll calls, got %d", calls)
	}
}

func TestExistingHashesTreatsMissingCollectionAsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "manual_chunks")
	hashes, err := client.ExistingHashes(context.Background())
	if err != nil {
		t.Fatalf("ExistingHashes() error = %v", err)
	}
	if len(hashes) != 0 {
		t.Errorf("expected empty map, got %v", hashes)
	}
}

func TestResetDeletesCollectionAndToleratesMissing(t *testing.T) {
	var deleted int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete && r.URL.Path == "/collections/manual_chunks" {
			if atomic.AddInt32(&deleted, 1) == 1 {
				_, _ = w.Write([]byte(`{"status":"ok"}`))
				return
			}
			http.NotFound(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "manual_chunks")
	if err := client.Reset(context.Background()); err != nil {
		t.Fatalf("first Reset() error = %v", err)
	}
	if err := client.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() on missing collection error = %v", err)
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/manual_chunks" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "manual_chunks")
	chunks, vectors := sampleChunks()
	err := client.UpsertChunks(context.Background(), chunks, vectors)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}

func TestUpsertChunksRejectsVectorMismatch(t *testing.T) {
	client := New("http://unused", "manual_chunks")
	chunks, _ := sampleChunks()
	err := client.UpsertChunks(context.Background(), chunks, [][]float32{{0.1}})
	if err == nil || !strings.Contains(err.Error(), "mismatch") {
		t.Fatalf("expected mismatch error, got %v", err)
	}
}

func TestPointIDIsStable(t *testing.T) {
	a := pointID("manual.pdf:3:2")
	b := pointID("manual.pdf:3:2")
	c := pointID("manual.pdf:3:3")
	if a != b {
		t.Errorf("same chunk id produced different point ids: %q vs %q", a, b)
	}
	if a == c {
		t.Errorf("different chunk ids collided: %q", a)
	}
}
