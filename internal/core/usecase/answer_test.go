package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/healthflow/ai-assistant/internal/core/domain"
)

type cacheFake struct {
	entries map[string]domain.Answer
	puts    int
}

func newCacheFake() *cacheFake {
	return &cacheFake{entries: make(map[string]domain.Answer)}
}

func (f *cacheFake) Get(key string) (domain.Answer, bool) {
	answer, ok := f.entries[key]
	return answer, ok
}

func (f *cacheFake) Put(key string, answer domain.Answer) {
	f.puts++
	f.entries[key] = answer
}

type embedderFake struct {
	err error
}

func (f *embedderFake) Embed(context.Context, []string) ([][]float32, error) { return nil, f.err }
func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type indexFake struct {
	matches []domain.RetrievalMatch
	topK    int
	err     error
}

func (f *indexFake) EnsureReady(context.Context) error                 { return nil }
func (f *indexFake) Upsert(context.Context, []domain.IndexRecord) error { return nil }
func (f *indexFake) Query(_ context.Context, _ []float32, topK int) ([]domain.RetrievalMatch, error) {
	f.topK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

type generatorFake struct {
	userCalls  int
	adminCalls int
	context    string
	err        error
}

func (f *generatorFake) GenerateUserAnswer(context.Context, string) (string, error) {
	f.userCalls++
	if f.err != nil {
		return "", f.err
	}
	return "user answer", nil
}

func (f *generatorFake) GenerateAdminAnswer(_ context.Context, _ string, contextText string) (string, error) {
	f.adminCalls++
	f.context = contextText
	if f.err != nil {
		return "", f.err
	}
	return "admin answer", nil
}

// inlineRunner executes the call synchronously; operations listed in
// timeoutOps fail with a timeout instead of running.
type inlineRunner struct {
	timeoutOps map[string]struct{}
}

func (r *inlineRunner) Run(ctx context.Context, _ time.Duration, operation string, fn func(context.Context) error) error {
	if _, ok := r.timeoutOps[operation]; ok {
		return domain.WrapError(domain.ErrTimeout, operation, context.DeadlineExceeded)
	}
	return fn(ctx)
}

func newAnswerUC(cache *cacheFake, embedder *embedderFake, index *indexFake, generator *generatorFake, runner *inlineRunner) *AnswerUseCase {
	return NewAnswerUseCase(
		cache, embedder, index, generator,
		NewRetriever(0.3, 5), runner,
		AnswerTimeouts{}, 5, nil,
	)
}

func TestCacheKeyNormalization(t *testing.T) {
	if CacheKey("  What is Flu? ", domain.RoleUser) != CacheKey("what is flu?", domain.RoleUser) {
		t.Fatalf("expected identical keys for case/whitespace variants")
	}
	if CacheKey("what is flu?", domain.RoleUser) == CacheKey("what is flu?", domain.RoleAdmin) {
		t.Fatalf("expected role to separate cache keys")
	}
}

func TestAnswerCasualPath(t *testing.T) {
	generator := &generatorFake{}
	uc := newAnswerUC(newCacheFake(), &embedderFake{}, &indexFake{}, generator, &inlineRunner{})

	result := uc.Answer(context.Background(), "hi", domain.RoleUser)
	if result.Answer == "" {
		t.Fatalf("expected non-empty answer")
	}
	if len(result.Sources) != 0 {
		t.Fatalf("expected empty sources, got %v", result.Sources)
	}
	if result.Route != domain.RouteCasual {
		t.Fatalf("expected casual route, got %s", result.Route)
	}
	if generator.userCalls != 1 || generator.adminCalls != 0 {
		t.Fatalf("expected user chain only, got user=%d admin=%d", generator.userCalls, generator.adminCalls)
	}
}

func TestAnswerNonAdminSkipsRetrieval(t *testing.T) {
	generator := &generatorFake{}
	index := &indexFake{}
	uc := newAnswerUC(newCacheFake(), &embedderFake{}, index, generator, &inlineRunner{})

	result := uc.Answer(context.Background(), "what is diabetes", domain.RoleUser)
	if result.Route != domain.RouteUser {
		t.Fatalf("expected user route, got %s", result.Route)
	}
	if index.topK != 0 {
		t.Fatalf("expected no index query for non-admin role")
	}
}

func TestAnswerAdminPath(t *testing.T) {
	generator := &generatorFake{}
	index := &indexFake{matches: []domain.RetrievalMatch{
		{
			Score: 0.6,
			Metadata: domain.ChunkMetadata{
				Source: "flu-guide.pdf",
				Role:   "admin",
				Text:   "flu symptoms include fever and cough",
			},
		},
	}}
	uc := newAnswerUC(newCacheFake(), &embedderFake{}, index, generator, &inlineRunner{})

	result := uc.Answer(context.Background(), "what are symptoms of flu", domain.RoleAdmin)
	if result.Route != domain.RouteAdmin {
		t.Fatalf("expected admin route, got %s", result.Route)
	}
	if index.topK != 5 {
		t.Fatalf("expected top_k=5, got %d", index.topK)
	}
	if len(result.Sources) != 1 || result.Sources[0] != "flu-guide.pdf" {
		t.Fatalf("expected flu-guide.pdf source, got %v", result.Sources)
	}
	if !strings.Contains(generator.context, "fever") {
		t.Fatalf("expected chunk text in generation context, got %q", generator.context)
	}
}

func TestAnswerAdminEmptyContextStillGenerates(t *testing.T) {
	generator := &generatorFake{}
	uc := newAnswerUC(newCacheFake(), &embedderFake{}, &indexFake{}, generator, &inlineRunner{})

	result := uc.Answer(context.Background(), "what is an obscure disease", domain.RoleAdmin)
	if result.Route != domain.RouteAdmin {
		t.Fatalf("expected admin route, got %s", result.Route)
	}
	if generator.context != "" {
		t.Fatalf("expected empty context, got %q", generator.context)
	}
	if generator.adminCalls != 1 {
		t.Fatalf("expected admin chain invocation with empty context")
	}
}

func TestAnswerCacheHitSkipsPipeline(t *testing.T) {
	cache := newCacheFake()
	generator := &generatorFake{}
	uc := newAnswerUC(cache, &embedderFake{}, &indexFake{}, generator, &inlineRunner{})

	first := uc.Answer(context.Background(), "what is diabetes", domain.RoleUser)
	second := uc.Answer(context.Background(), "  WHAT IS DIABETES ", domain.RoleUser)

	if generator.userCalls != 1 {
		t.Fatalf("expected single generation, got %d", generator.userCalls)
	}
	if second.Route != domain.RouteCacheHit {
		t.Fatalf("expected cache hit route, got %s", second.Route)
	}
	if second.Answer != first.Answer {
		t.Fatalf("expected identical cached answer")
	}
}

func TestAnswerEmbedTimeoutFallsBackUncached(t *testing.T) {
	cache := newCacheFake()
	runner := &inlineRunner{timeoutOps: map[string]struct{}{"embed.query": {}}}
	uc := newAnswerUC(cache, &embedderFake{}, &indexFake{}, &generatorFake{}, runner)

	result := uc.Answer(context.Background(), "what is diabetes", domain.RoleAdmin)
	if result.Answer != timeoutAnswer {
		t.Fatalf("expected timeout fallback, got %q", result.Answer)
	}
	if len(result.Sources) != 0 {
		t.Fatalf("expected empty sources on fallback")
	}
	if cache.puts != 0 {
		t.Fatalf("expected fallback answer not cached, got %d puts", cache.puts)
	}
}

func TestAnswerGeneratorErrorTruncated(t *testing.T) {
	longErr := errors.New(strings.Repeat("x", 300))
	generator := &generatorFake{err: longErr}
	uc := newAnswerUC(newCacheFake(), &embedderFake{}, &indexFake{}, generator, &inlineRunner{})

	result := uc.Answer(context.Background(), "what is diabetes", domain.RoleUser)
	if !strings.HasPrefix(result.Answer, "Sorry, an error occurred: ") {
		t.Fatalf("expected error answer, got %q", result.Answer)
	}
	if len(result.Answer) > len("Sorry, an error occurred: ")+errorMaxLength+3 {
		t.Fatalf("expected truncated error message, got %d chars", len(result.Answer))
	}
	if result.Route != domain.RouteFallback {
		t.Fatalf("expected fallback route, got %s", result.Route)
	}
}
