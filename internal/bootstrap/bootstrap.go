package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/healthflow/ai-assistant/internal/config"
	"github.com/healthflow/ai-assistant/internal/core/ports"
	"github.com/healthflow/ai-assistant/internal/core/usecase"
	"github.com/healthflow/ai-assistant/internal/infrastructure/cache"
	"github.com/healthflow/ai-assistant/internal/infrastructure/chunking"
	"github.com/healthflow/ai-assistant/internal/infrastructure/embed/fastembed"
	"github.com/healthflow/ai-assistant/internal/infrastructure/extractor/pdfparse"
	"github.com/healthflow/ai-assistant/internal/infrastructure/llm/gemini"
	"github.com/healthflow/ai-assistant/internal/infrastructure/queue/nats"
	"github.com/healthflow/ai-assistant/internal/infrastructure/repository/postgres"
	"github.com/healthflow/ai-assistant/internal/infrastructure/resilience"
	"github.com/healthflow/ai-assistant/internal/infrastructure/storage/localfs"
	"github.com/healthflow/ai-assistant/internal/infrastructure/vector/pinecone"
	"github.com/healthflow/ai-assistant/internal/infrastructure/workerpool"
	"github.com/healthflow/ai-assistant/internal/observability/metrics"
)

// App holds the wired object graph. Every external dependency is
// constructed eagerly so a misconfigured service fails at startup, not
// on the first request.
type App struct {
	Config config.Config

	Assistant ports.Assistant
	Ingestor  ports.DocumentIngestor
	Documents ports.DocumentReader
	Metrics   *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	registry := postgres.NewDocumentRepository(db)
	if err := registry.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	var events ports.EventPublisher
	var queue *nats.Queue
	if cfg.EventsEnabled() {
		queue, err = nats.New(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		events = queue
	}

	// The answer path relies on the task runner for timeout policy, so
	// outbound calls run with the breaker only and never retry.
	answerExecutor := resilience.NewExecutor(resilience.SingleAttemptConfig())
	ingestExecutor := resilience.NewExecutor(resilience.DefaultConfig())

	generator := gemini.NewGenerator(gemini.New("", cfg.GoogleAPIKey, cfg.GeminiModel, answerExecutor))
	embedder := fastembed.New(cfg.EmbeddingURL, cfg.EmbeddingModel, cfg.EmbeddingDimension, answerExecutor)

	vectorIndex := pinecone.New(pinecone.Config{
		ControlURL: cfg.PineconeControlURL,
		APIKey:     cfg.PineconeAPIKey,
		IndexName:  cfg.PineconeIndex,
		Dimension:  cfg.EmbeddingDimension,
		Cloud:      cfg.PineconeCloud,
		Region:     cfg.PineconeRegion,
	}, ingestExecutor, logger)
	if err := vectorIndex.EnsureReady(ctx); err != nil {
		return nil, fmt.Errorf("ensure vector index: %w", err)
	}

	responseCache, err := cache.New(cfg.CacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("init response cache: %w", err)
	}

	pool, err := workerpool.New(cfg.WorkerPoolSize)
	if err != nil {
		return nil, fmt.Errorf("init worker pool: %w", err)
	}

	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	parser := pdfparse.NewExtractor()
	retriever := usecase.NewRetriever(cfg.RAGScoreThreshold, cfg.RAGContextChunks)

	timeouts := usecase.AnswerTimeouts{
		Embed:     time.Duration(cfg.EmbedTimeoutSeconds) * time.Second,
		Search:    time.Duration(cfg.SearchTimeoutSeconds) * time.Second,
		UserChat:  time.Duration(cfg.UserChatTimeoutSeconds) * time.Second,
		AdminChat: time.Duration(cfg.AdminChatTimeoutSeconds) * time.Second,
	}

	assistant := usecase.NewAnswerUseCase(
		responseCache,
		embedder,
		vectorIndex,
		generator,
		retriever,
		pool,
		timeouts,
		cfg.RAGTopK,
		logger,
	)
	ingestor := usecase.NewIngestDocumentUseCase(
		registry,
		storage,
		parser,
		chunker,
		embedder,
		vectorIndex,
		events,
		logger,
	)

	return &App{
		Config: cfg,

		Assistant: assistant,
		Ingestor:  ingestor,
		Documents: registry,
		Metrics:   metrics.NewHTTPServerMetrics("api"),

		closeFn: func() {
			pool.Release()
			if queue != nil {
				queue.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
