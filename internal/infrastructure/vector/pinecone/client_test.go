package pinecone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/healthflow/ai-assistant/internal/core/domain"
)

// fakePinecone serves both control and data planes on one server.
type fakePinecone struct {
	mux       *http.ServeMux
	server    *httptest.Server
	created   atomic.Bool
	describes atomic.Int32
	upserts   []map[string]any
	matches   []map[string]any
	readyAt   int32
}

func newFakePinecone(t *testing.T, readyAt int32) *fakePinecone {
	t.Helper()
	f := &fakePinecone{mux: http.NewServeMux(), readyAt: readyAt}
	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)

	f.mux.HandleFunc("GET /indexes/medical-kb", func(w http.ResponseWriter, _ *http.Request) {
		if !f.created.Load() {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		n := f.describes.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name": "medical-kb",
			"host": f.server.URL,
			"status": map[string]any{
				"ready": n >= f.readyAt,
				"state": "Initializing",
			},
		})
	})
	f.mux.HandleFunc("POST /indexes", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["dimension"] != float64(384) || payload["metric"] != "cosine" {
			t.Errorf("unexpected create payload %v", payload)
		}
		f.created.Store(true)
		w.WriteHeader(http.StatusCreated)
	})
	f.mux.HandleFunc("POST /vectors/upsert", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Vectors []map[string]any `json:"vectors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		f.upserts = append(f.upserts, payload.Vectors...)
		_ = json.NewEncoder(w).Encode(map[string]any{"upsertedCount": len(payload.Vectors)})
	})
	f.mux.HandleFunc("POST /query", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"matches": f.matches})
	})
	return f
}

func newTestClient(f *fakePinecone) *Client {
	return New(Config{
		ControlURL:   f.server.URL,
		APIKey:       "pc-key",
		IndexName:    "medical-kb",
		Dimension:    384,
		ReadyChecks:  5,
		ReadyBackoff: time.Millisecond,
	}, nil, nil)
}

func TestEnsureReadyCreatesAndPolls(t *testing.T) {
	fake := newFakePinecone(t, 2)
	client := newTestClient(fake)

	if err := client.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}
	if !fake.created.Load() {
		t.Fatalf("expected index creation")
	}
	if fake.describes.Load() < 2 {
		t.Fatalf("expected readiness polling, got %d describes", fake.describes.Load())
	}

	// Second call is a no-op once the host is cached.
	before := fake.describes.Load()
	if err := client.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady() second call error = %v", err)
	}
	if fake.describes.Load() != before {
		t.Fatalf("expected idempotent EnsureReady")
	}
}

func TestUpsertSendsRecords(t *testing.T) {
	fake := newFakePinecone(t, 1)
	client := newTestClient(fake)
	if err := client.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}

	records := []domain.IndexRecord{
		{
			ID:     "doc-1-0",
			Vector: []float32{0.1, 0.2},
			Metadata: domain.ChunkMetadata{
				Source: "flu.pdf", DocID: "doc-1", Role: "admin", Page: 2, Text: "flu text",
			},
		},
	}
	if err := client.Upsert(context.Background(), records); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if len(fake.upserts) != 1 {
		t.Fatalf("expected 1 upserted vector, got %d", len(fake.upserts))
	}
	if fake.upserts[0]["id"] != "doc-1-0" {
		t.Fatalf("unexpected vector id %v", fake.upserts[0]["id"])
	}
	metadata := fake.upserts[0]["metadata"].(map[string]any)
	if metadata["role"] != "admin" || metadata["source"] != "flu.pdf" {
		t.Fatalf("unexpected metadata %v", metadata)
	}
}

func TestQueryDecodesMatches(t *testing.T) {
	fake := newFakePinecone(t, 1)
	fake.matches = []map[string]any{
		{
			"id":    "doc-1-0",
			"score": 0.87,
			"metadata": map[string]any{
				"source": "flu.pdf", "doc_id": "doc-1", "role": "admin", "page": 3.0, "text": "flu chunk",
			},
		},
	}
	client := newTestClient(fake)
	if err := client.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}

	matches, err := client.Query(context.Background(), []float32{0.1}, 5)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Score != 0.87 {
		t.Fatalf("unexpected score %f", matches[0].Score)
	}
	if matches[0].Metadata.Page != 3 || matches[0].Metadata.Role != "admin" {
		t.Fatalf("unexpected metadata %+v", matches[0].Metadata)
	}
}

func TestQueryBeforeEnsureReadyFails(t *testing.T) {
	fake := newFakePinecone(t, 1)
	client := newTestClient(fake)

	_, err := client.Query(context.Background(), []float32{0.1}, 5)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error before EnsureReady, got %v", err)
	}
}
