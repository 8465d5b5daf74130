package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/kirillkom/hybrid-rag/internal/config"
	"github.com/kirillkom/hybrid-rag/internal/core/ports"
	"github.com/kirillkom/hybrid-rag/internal/core/usecase"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/chunking"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/extractor/xlsx"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/langdetect"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/lexical"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/llm/openai"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/queue/nats"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/rerank/overlap"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/rerank/tei"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/resilience"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/storage/watch"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/vector/dense"
)

type Options struct {
	Logger   *slog.Logger
	Observer usecase.BuildObserver

	// Resilience receives retry and breaker events; nil disables them.
	Resilience resilience.Observer
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Knowledge *usecase.KnowledgeBaseUseCase
	Query     *usecase.QueryUseCase
	Ingest    *usecase.IngestDocumentUseCase

	// Queue is nil unless NATS_URL is set; Scheduler is used otherwise.
	Queue     *nats.Queue
	Scheduler *usecase.RebuildScheduler

	corpus   *localfs.Storage
	closeFns []func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	executor := resilience.NewExecutor(resilienceConfig(cfg), resilience.Options{
		Logger:   logger,
		Observer: opts.Resilience,
	})

	storage, err := localfs.New(cfg.CorpusDir)
	if err != nil {
		return nil, fmt.Errorf("init corpus storage: %w", err)
	}
	app.corpus = storage
	text := plaintext.NewExtractor()
	corpus := localfs.NewCorpusReader(storage, map[string]ports.TextExtractor{
		".txt":  text,
		".md":   text,
		".pdf":  pdf.NewExtractor(),
		".xlsx": xlsx.NewExtractor(),
	}, logger)

	models, err := newModels(cfg, executor)
	if err != nil {
		return nil, err
	}

	var scorer ports.RelevanceScorer = overlap.Scorer{}
	if cfg.RerankURL != "" {
		scorer = tei.New(cfg.RerankURL, cfg.RerankTimeout, executor)
	}

	deps := usecase.KnowledgeBaseDeps{
		Corpus:   corpus,
		Chunker:  chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap, cfg.ChunkMinLength),
		Embedder: models.embedder,
		Store:    localfs.NewKnowledgeBaseStore(cfg.KBStorePath),
		Lexical:  lexical.NewIndexer(lexical.DefaultParams()),
		Dense:    dense.Indexer{},
		Observer: opts.Observer,
		Logger:   logger,
	}

	if cfg.PostgresDSN != "" {
		ledger, err := openLedger(ctx, cfg.PostgresDSN, app)
		if err != nil {
			return nil, err
		}
		deps.Ledger = ledger
	}

	if cfg.NATSURL != "" {
		queue, err := nats.NewWithOptions(cfg.NATSURL, nats.Options{
			RebuildSubject:     cfg.NATSRebuildSubject,
			UpdatedSubject:     cfg.NATSUpdatedSubject,
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.closeFns = append(app.closeFns, queue.Close)
		app.Queue = queue
		deps.Notifier = queue
	}

	app.Knowledge = usecase.NewKnowledgeBaseUseCase(deps, usecase.KnowledgeBaseOptions{
		EmbedBatchSize:   cfg.EmbedBatchSize,
		EmbedConcurrency: cfg.EmbedConcurrency,
		ChunkSize:        cfg.ChunkSize,
		ChunkOverlap:     cfg.ChunkOverlap,
	})

	retriever := usecase.NewRetriever(models.embedder, scorer, usecase.RetrievalOptions{
		Weights: usecase.FusionWeights{
			Lexical: cfg.RAGFusionLexicalWeight,
			Dense:   cfg.RAGFusionDenseWeight,
		},
		Candidates: cfg.RAGCandidates,
		TopK:       cfg.RAGTopK,
	})
	app.Query = usecase.NewQueryUseCase(app.Knowledge, retriever, models.generator, models.translator, langdetect.Detector{}, logger)

	if app.Queue == nil {
		app.Scheduler = usecase.NewRebuildScheduler(app.Knowledge, logger)
	}
	app.Ingest = app.NewIngestor(app.RebuildRequester())

	ok = true
	return app, nil
}

// RebuildRequester is where uploads and the admin endpoint send rebuilds.
func (a *App) RebuildRequester() ports.RebuildRequester {
	if a.Queue != nil {
		return a.Queue
	}
	return a.Scheduler
}

// NewIngestor writes uploads into the corpus. With a nil rebuilds the caller
// decides when to rebuild.
func (a *App) NewIngestor(rebuilds ports.RebuildRequester) *usecase.IngestDocumentUseCase {
	return usecase.NewIngestDocumentUseCase(a.corpus, rebuilds, a.Config.UploadExtensions, a.Logger)
}

// NewStoreWatcher reloads the live snapshot whenever the persisted blob changes.
func (a *App) NewStoreWatcher() *watch.Watcher {
	return watch.New(a.Config.KBStorePath, a.Config.WatchDebounce, func(ctx context.Context) error {
		_, err := a.Knowledge.Reload(ctx)
		return err
	}, a.Logger)
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}

type models struct {
	embedder   ports.Embedder
	generator  ports.AnswerGenerator
	translator ports.Translator
}

func newModels(cfg config.Config, executor *resilience.Executor) (models, error) {
	switch cfg.LLMProvider {
	case "", "ollama":
		client := ollama.New(cfg.OllamaURL, cfg.LLMTimeout, executor)
		translateModel := cfg.OllamaTranslateModel
		if translateModel == "" {
			translateModel = cfg.OllamaGenModel
		}
		return models{
			embedder:   ollama.NewEmbedder(client, cfg.OllamaEmbedModel),
			generator:  ollama.NewGenerator(client, cfg.OllamaGenModel),
			translator: ollama.NewTranslator(client, translateModel),
		}, nil
	case "openai":
		client := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, executor)
		return models{
			embedder:   openai.NewEmbedder(client, cfg.OpenAIEmbedModel),
			generator:  openai.NewGenerator(client, cfg.OpenAIGenModel),
			translator: openai.NewTranslator(client, cfg.OpenAIGenModel),
		}, nil
	default:
		return models{}, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func openLedger(ctx context.Context, dsn string, app *App) (*postgres.BuildRepository, error) {
	db, err := postgres.OpenDB(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	app.closeFns = append(app.closeFns, func() { closeDB(db, app.Logger) })

	repo := postgres.NewBuildRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, nil
}

func closeDB(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn("postgres_close_failed", "error", err)
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	rc := resilience.DefaultConfig()
	rc.CallTimeout = cfg.LLMTimeout
	rc.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	rc.RetryInitialBackoff = cfg.ResilienceRetryInitialBackoff
	rc.RetryMaxBackoff = cfg.ResilienceRetryMaxBackoff
	rc.BreakerEnabled = cfg.ResilienceBreakerEnabled
	if cfg.ResilienceBreakerMinRequests > 0 {
		rc.BreakerMinRequests = uint32(cfg.ResilienceBreakerMinRequests)
	}
	rc.BreakerFailureRatio = cfg.ResilienceBreakerFailureRatio
	rc.BreakerOpenTimeout = cfg.ResilienceBreakerOpenTimeout
	return rc
}
