package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/healthflow/ai-assistant/internal/core/domain"
	"github.com/healthflow/ai-assistant/internal/core/ports"
)

const (
	timeoutAnswer  = "Sorry, the request timed out. Please try again with a simpler question."
	errorMaxLength = 100
)

// AnswerTimeouts bounds each blocking step of the pipeline. Values are
// configuration, not literals scattered through the orchestration.
type AnswerTimeouts struct {
	Embed     time.Duration
	Search    time.Duration
	UserChat  time.Duration
	AdminChat time.Duration
}

func (t AnswerTimeouts) normalize() AnswerTimeouts {
	out := t
	if out.Embed <= 0 {
		out.Embed = 15 * time.Second
	}
	if out.Search <= 0 {
		out.Search = 15 * time.Second
	}
	if out.UserChat <= 0 {
		out.UserChat = 30 * time.Second
	}
	if out.AdminChat <= 0 {
		out.AdminChat = 45 * time.Second
	}
	return out
}

// AnswerUseCase orchestrates the question-answering pipeline:
// cache check, casual classification, user or admin path, cache write.
// It never returns an error; failures fold into the Answer payload.
type AnswerUseCase struct {
	cache     ports.ResponseCache
	embedder  ports.Embedder
	index     ports.VectorIndex
	generator ports.AnswerGenerator
	retriever *Retriever
	runner    ports.TaskRunner
	timeouts  AnswerTimeouts
	topK      int
	logger    *slog.Logger
}

func NewAnswerUseCase(
	cache ports.ResponseCache,
	embedder ports.Embedder,
	index ports.VectorIndex,
	generator ports.AnswerGenerator,
	retriever *Retriever,
	runner ports.TaskRunner,
	timeouts AnswerTimeouts,
	topK int,
	logger *slog.Logger,
) *AnswerUseCase {
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerUseCase{
		cache:     cache,
		embedder:  embedder,
		index:     index,
		generator: generator,
		retriever: retriever,
		runner:    runner,
		timeouts:  timeouts.normalize(),
		topK:      topK,
		logger:    logger,
	}
}

// CacheKey is a deterministic digest of role plus the normalized
// question. Questions differing only in case or surrounding whitespace
// collide by design.
func CacheKey(question string, role domain.Role) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	sum := sha256.Sum256([]byte(string(role) + ":" + normalized))
	return hex.EncodeToString(sum[:])
}

func (uc *AnswerUseCase) Answer(ctx context.Context, question string, role domain.Role) domain.Answer {
	key := CacheKey(question, role)
	if cached, ok := uc.cache.Get(key); ok {
		cached.Route = domain.RouteCacheHit
		return cached
	}

	result := uc.answerUncached(ctx, question, role)
	if result.Route != domain.RouteFallback {
		uc.cache.Put(key, result)
	}
	return result
}

func (uc *AnswerUseCase) answerUncached(ctx context.Context, question string, role domain.Role) domain.Answer {
	// Greetings skip retrieval for every role; non-admins never reach it.
	if IsCasualMessage(question) {
		return uc.userPath(ctx, question, domain.RouteCasual)
	}
	if !role.IsAdmin() {
		return uc.userPath(ctx, question, domain.RouteUser)
	}
	return uc.adminPath(ctx, question)
}

func (uc *AnswerUseCase) userPath(ctx context.Context, question string, route domain.AnswerRoute) domain.Answer {
	var answerText string
	err := uc.runner.Run(ctx, uc.timeouts.UserChat, "llm.generate", func(callCtx context.Context) error {
		var genErr error
		answerText, genErr = uc.generator.GenerateUserAnswer(callCtx, question)
		return genErr
	})
	if err != nil {
		return uc.failureAnswer(err)
	}
	return domain.Answer{
		Answer:  answerText,
		Sources: []string{},
		Route:   route,
	}
}

func (uc *AnswerUseCase) adminPath(ctx context.Context, question string) domain.Answer {
	var queryVector []float32
	err := uc.runner.Run(ctx, uc.timeouts.Embed, "embed.query", func(callCtx context.Context) error {
		var embedErr error
		queryVector, embedErr = uc.embedder.EmbedQuery(callCtx, question)
		return embedErr
	})
	if err != nil {
		return uc.failureAnswer(err)
	}

	var matches []domain.RetrievalMatch
	err = uc.runner.Run(ctx, uc.timeouts.Search, "index.query", func(callCtx context.Context) error {
		var queryErr error
		matches, queryErr = uc.index.Query(callCtx, queryVector, uc.topK)
		return queryErr
	})
	if err != nil {
		return uc.failureAnswer(err)
	}

	contextText, sources := uc.retriever.Retrieve(matches)
	uc.logger.Debug("retrieval_complete",
		"matches", len(matches),
		"sources", len(sources),
		"context_chars", len(contextText),
	)

	var answerText string
	err = uc.runner.Run(ctx, uc.timeouts.AdminChat, "llm.generate_rag", func(callCtx context.Context) error {
		var genErr error
		answerText, genErr = uc.generator.GenerateAdminAnswer(callCtx, question, contextText)
		return genErr
	})
	if err != nil {
		return uc.failureAnswer(err)
	}

	return domain.Answer{
		Answer:  answerText,
		Sources: sources,
		Route:   domain.RouteAdmin,
	}
}

// failureAnswer shields callers from internal failure detail: timeouts
// map to a fixed fallback, everything else to a truncated message.
// Neither variant is cached.
func (uc *AnswerUseCase) failureAnswer(err error) domain.Answer {
	if domain.IsKind(err, domain.ErrTimeout) {
		uc.logger.Warn("answer_timeout", "error", err)
		return domain.Answer{
			Answer:  timeoutAnswer,
			Sources: []string{},
			Route:   domain.RouteFallback,
		}
	}

	uc.logger.Error("answer_failed", "error", err)
	message := err.Error()
	if len(message) > errorMaxLength {
		message = message[:errorMaxLength]
	}
	return domain.Answer{
		Answer:  fmt.Sprintf("Sorry, an error occurred: %s...", message),
		Sources: []string{},
		Route:   domain.RouteFallback,
	}
}
