package usecase

import (
	"strings"
	"testing"

	"github.com/healthflow/ai-assistant/internal/core/domain"
)

func adminMatch(score float64, source, text string) domain.RetrievalMatch {
	return domain.RetrievalMatch{
		Score: score,
		Metadata: domain.ChunkMetadata{
			Source: source,
			Role:   "admin",
			Text:   text,
		},
	}
}

func TestRetrieveDropsLowScores(t *testing.T) {
	r := NewRetriever(0.3, 5)
	matches := []domain.RetrievalMatch{
		adminMatch(0.9, "flu.pdf", "high"),
		adminMatch(0.35, "flu.pdf", "mid"),
		adminMatch(0.1, "flu.pdf", "low"),
	}

	contextText, sources := r.Retrieve(matches)
	if contextText != "high\n\nmid" {
		t.Fatalf("expected context from 0.9 and 0.35 matches, got %q", contextText)
	}
	if len(sources) != 1 || sources[0] != "flu.pdf" {
		t.Fatalf("expected single source flu.pdf, got %v", sources)
	}
}

func TestRetrieveDropsNonAdminRoles(t *testing.T) {
	r := NewRetriever(0.3, 5)
	matches := []domain.RetrievalMatch{
		{Score: 0.95, Metadata: domain.ChunkMetadata{Source: "user.pdf", Role: "user", Text: "secret"}},
		{Score: 0.9, Metadata: domain.ChunkMetadata{Source: "user.pdf", Role: "user", Text: "secret2"}},
	}

	contextText, sources := r.Retrieve(matches)
	if contextText != "" {
		t.Fatalf("expected empty context, got %q", contextText)
	}
	if len(sources) != 0 {
		t.Fatalf("expected no sources, got %v", sources)
	}
}

func TestRetrieveTruncatesContextButKeepsAllSources(t *testing.T) {
	r := NewRetriever(0.3, 5)
	matches := make([]domain.RetrievalMatch, 0, 7)
	for i := 0; i < 7; i++ {
		matches = append(matches, adminMatch(0.9-float64(i)*0.01, "doc"+string(rune('a'+i))+".pdf", "chunk"))
	}

	contextText, sources := r.Retrieve(matches)
	if got := len(strings.Split(contextText, "\n\n")); got != 5 {
		t.Fatalf("expected 5 context chunks, got %d", got)
	}
	if len(sources) != 7 {
		t.Fatalf("expected all 7 surviving sources, got %d", len(sources))
	}
}

func TestRetrieveEmptyInput(t *testing.T) {
	r := NewRetriever(0.3, 5)
	contextText, sources := r.Retrieve(nil)
	if contextText != "" || len(sources) != 0 {
		t.Fatalf("expected empty result, got %q / %v", contextText, sources)
	}
}
