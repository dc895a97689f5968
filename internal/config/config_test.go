package config

import "testing"

func TestLoadIncludesPipelineDefaults(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "")
	t.Setenv("CHUNK_OVERLAP", "")
	t.Setenv("RAG_TOP_K", "")
	t.Setenv("RAG_SCORE_THRESHOLD", "")
	t.Setenv("EMBEDDING_DIMENSION", "")

	cfg := Load()
	if cfg.ChunkSize != 2000 {
		t.Fatalf("expected default chunk size 2000, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 200 {
		t.Fatalf("expected default chunk overlap 200, got %d", cfg.ChunkOverlap)
	}
	if cfg.RAGTopK != 5 {
		t.Fatalf("expected default top k 5, got %d", cfg.RAGTopK)
	}
	if cfg.RAGScoreThreshold != 0.3 {
		t.Fatalf("expected default score threshold 0.3, got %f", cfg.RAGScoreThreshold)
	}
	if cfg.EmbeddingDimension != 384 {
		t.Fatalf("expected default embedding dimension 384, got %d", cfg.EmbeddingDimension)
	}
}

func TestLoadIncludesTimeoutDefaults(t *testing.T) {
	t.Setenv("EMBED_TIMEOUT_SECONDS", "")
	t.Setenv("SEARCH_TIMEOUT_SECONDS", "")
	t.Setenv("USER_CHAT_TIMEOUT_SECONDS", "")
	t.Setenv("ADMIN_CHAT_TIMEOUT_SECONDS", "")

	cfg := Load()
	if cfg.EmbedTimeoutSeconds != 15 || cfg.SearchTimeoutSeconds != 15 {
		t.Fatalf("unexpected embed/search timeouts %d/%d", cfg.EmbedTimeoutSeconds, cfg.SearchTimeoutSeconds)
	}
	if cfg.UserChatTimeoutSeconds != 30 || cfg.AdminChatTimeoutSeconds != 45 {
		t.Fatalf("unexpected chat timeouts %d/%d", cfg.UserChatTimeoutSeconds, cfg.AdminChatTimeoutSeconds)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("RAG_SCORE_THRESHOLD", "0.45")
	t.Setenv("CACHE_CAPACITY", "250")
	t.Setenv("NATS_URL", "nats://broker:4222")

	cfg := Load()
	if cfg.RAGScoreThreshold != 0.45 {
		t.Fatalf("expected score threshold override, got %f", cfg.RAGScoreThreshold)
	}
	if cfg.CacheCapacity != 250 {
		t.Fatalf("expected cache capacity 250, got %d", cfg.CacheCapacity)
	}
	if !cfg.EventsEnabled() {
		t.Fatalf("expected events enabled with NATS_URL set")
	}
}

func TestEventsDisabledWithoutBroker(t *testing.T) {
	t.Setenv("NATS_URL", "")
	cfg := Load()
	if cfg.EventsEnabled() {
		t.Fatalf("expected events disabled without NATS_URL")
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "not-a-number")
	cfg := Load()
	if cfg.ChunkSize != 2000 {
		t.Fatalf("expected fallback chunk size on parse failure, got %d", cfg.ChunkSize)
	}
}
