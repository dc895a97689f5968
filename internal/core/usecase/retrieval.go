package usecase

import (
	"sort"
	"strings"

	"github.com/healthflow/ai-assistant/internal/core/domain"
)

// Retriever filters ranked matches into a context string and a
// deduplicated source set.
type Retriever struct {
	ScoreThreshold float64
	ContextChunks  int
}

func NewRetriever(scoreThreshold float64, contextChunks int) *Retriever {
	if scoreThreshold <= 0 {
		scoreThreshold = 0.3
	}
	if contextChunks <= 0 {
		contextChunks = 5
	}
	return &Retriever{
		ScoreThreshold: scoreThreshold,
		ContextChunks:  contextChunks,
	}
}

// Retrieve drops matches below the relevance floor and matches whose
// metadata role is not admin, then joins the top surviving chunk texts
// (input is pre-sorted by descending score) with blank lines. Sources
// collect the source field of every surviving match, not only those that
// made it into the context window. An empty result is valid: the admin
// prompt handles missing context.
func (r *Retriever) Retrieve(matches []domain.RetrievalMatch) (string, []string) {
	texts := make([]string, 0, len(matches))
	sourceSet := make(map[string]struct{})

	for _, match := range matches {
		if match.Score < r.ScoreThreshold {
			continue
		}
		if domain.NormalizeRole(match.Metadata.Role) != domain.RoleAdmin {
			continue
		}
		texts = append(texts, match.Metadata.Text)
		if match.Metadata.Source != "" {
			sourceSet[match.Metadata.Source] = struct{}{}
		}
	}

	if len(texts) > r.ContextChunks {
		texts = texts[:r.ContextChunks]
	}

	sources := make([]string, 0, len(sourceSet))
	for source := range sourceSet {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	return strings.Join(texts, "\n\n"), sources
}
