package fastembed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func vectorOf(dim int, fill float32) []float32 {
	out := make([]float32, dim)
	for i := range out {
		out[i] = fill
	}
	return out
}

func TestEmbedBatch(t *testing.T) {
	var gotReq embedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode([][]float32{vectorOf(4, 0.1), vectorOf(4, 0.2)})
	}))
	defer server.Close()

	client := New(server.URL, "BAAI/bge-small-en-v1.5", 4, nil)
	vectors, err := client.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 4 {
		t.Fatalf("unexpected vectors shape")
	}
	if len(gotReq.Inputs) != 2 || gotReq.Inputs[1] != "b" {
		t.Fatalf("unexpected request inputs %v", gotReq.Inputs)
	}
	if !gotReq.Truncate {
		t.Fatalf("expected truncate flag")
	}
}

func TestEmbedDimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([][]float32{vectorOf(3, 0.1)})
	}))
	defer server.Close()

	client := New(server.URL, "m", 384, nil)
	_, err := client.Embed(context.Background(), []string{"a"})
	if err == nil || !strings.Contains(err.Error(), "dimension") {
		t.Fatalf("expected dimension error, got %v", err)
	}
}

func TestEmbedQuerySingleVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([][]float32{vectorOf(4, 0.5)})
	}))
	defer server.Close()

	client := New(server.URL, "m", 4, nil)
	vector, err := client.EmbedQuery(context.Background(), "what is flu")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 4 {
		t.Fatalf("unexpected vector length %d", len(vector))
	}
}

func TestEmbedServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "m", 4, nil)
	_, err := client.Embed(context.Background(), []string{"a"})
	if err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("expected server error message, got %v", err)
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	client := New("http://unused", "m", 4, nil)
	vectors, err := client.Embed(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("expected nil result for empty input, got %v/%v", vectors, err)
	}
}
