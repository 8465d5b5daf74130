package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
	"github.com/kirillkom/hybrid-rag/internal/core/ports"
)

// Snapshot is an immutable, query-ready knowledge base: the persisted aggregate
// plus the indexes derived from it. Queries share it without locking.
type Snapshot struct {
	KB      *domain.KnowledgeBase
	Lexical ports.LexicalIndex
	Dense   ports.DenseIndex
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return s.KB.Len()
}

func NewSnapshot(kb *domain.KnowledgeBase, lexical ports.LexicalIndexer, dense ports.DenseIndexer) (*Snapshot, error) {
	if kb == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "new snapshot", errors.New("knowledge base is nil"))
	}
	denseIndex, err := dense.BuildDense(kb.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("build dense index: %w", err)
	}
	lexicalIndex := lexical.BuildLexical(kb.Texts())
	if lexicalIndex.Len() != kb.Len() || denseIndex.Len() != kb.Len() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "new snapshot",
			fmt.Errorf("chunks=%d lexical=%d dense=%d", kb.Len(), lexicalIndex.Len(), denseIndex.Len()))
	}
	return &Snapshot{KB: kb, Lexical: lexicalIndex, Dense: denseIndex}, nil
}

// BuildObserver receives build outcomes, typically for metrics.
type BuildObserver interface {
	ObserveKnowledgeBaseBuild(trigger string, chunks int, duration time.Duration, err error)
	SetKnowledgeBaseChunks(chunks int)
}

type KnowledgeBaseDeps struct {
	Corpus   ports.CorpusReader
	Chunker  ports.Chunker
	Embedder ports.Embedder
	Store    ports.KnowledgeBaseStore
	Lexical  ports.LexicalIndexer
	Dense    ports.DenseIndexer

	// Optional.
	Ledger   ports.BuildLedger
	Notifier ports.KnowledgeBaseNotifier
	Observer BuildObserver
	Logger   *slog.Logger
}

type KnowledgeBaseOptions struct {
	EmbedBatchSize   int
	EmbedConcurrency int
	ChunkSize        int
	ChunkOverlap     int
}

// KnowledgeBaseUseCase owns the current snapshot. Builds and loads are
// serialized; readers only ever see a fully built snapshot.
type KnowledgeBaseUseCase struct {
	deps KnowledgeBaseDeps
	opts KnowledgeBaseOptions
	now  func() time.Time

	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

func NewKnowledgeBaseUseCase(deps KnowledgeBaseDeps, opts KnowledgeBaseOptions) *KnowledgeBaseUseCase {
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = 32
	}
	if opts.EmbedConcurrency <= 0 {
		opts.EmbedConcurrency = 4
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &KnowledgeBaseUseCase{
		deps: deps,
		opts: opts,
		now:  time.Now,
	}
}

// Current returns the live snapshot, or nil when nothing is loaded.
func (uc *KnowledgeBaseUseCase) Current() *Snapshot {
	return uc.current.Load()
}

func (uc *KnowledgeBaseUseCase) Status(context.Context) domain.KnowledgeBaseStatus {
	snap := uc.current.Load()
	if snap == nil {
		return domain.StatusOf(nil)
	}
	return domain.StatusOf(snap.KB)
}

// Load returns the live snapshot, loading it from the store on first use. A
// missing store triggers a fresh build from the corpus.
func (uc *KnowledgeBaseUseCase) Load(ctx context.Context) (*Snapshot, error) {
	if snap := uc.current.Load(); snap != nil {
		return snap, nil
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	if snap := uc.current.Load(); snap != nil {
		return snap, nil
	}
	return uc.loadLocked(ctx)
}

// Reload replaces the live snapshot with what is currently persisted.
func (uc *KnowledgeBaseUseCase) Reload(ctx context.Context) (domain.KnowledgeBaseStatus, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	snap, err := uc.loadLocked(ctx)
	if err != nil {
		return uc.Status(ctx), err
	}
	return domain.StatusOf(snap.KB), nil
}

// Rebuild builds from the corpus, persists, and swaps the live snapshot. On
// failure the previous snapshot stays live.
func (uc *KnowledgeBaseUseCase) Rebuild(ctx context.Context, trigger domain.BuildTrigger) (domain.KnowledgeBaseStatus, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	snap, err := uc.buildLocked(ctx, trigger)
	if err != nil {
		return uc.Status(ctx), err
	}
	return domain.StatusOf(snap.KB), nil
}

func (uc *KnowledgeBaseUseCase) loadLocked(ctx context.Context) (*Snapshot, error) {
	kb, err := uc.deps.Store.Load(ctx)
	if err != nil {
		if domain.IsKind(err, domain.ErrKnowledgeBaseAbsent) {
			uc.deps.Logger.Info("knowledge_base_missing_building", "operation", "kb.load")
			return uc.buildLocked(ctx, domain.BuildTriggerStartup)
		}
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}

	snap, err := NewSnapshot(kb, uc.deps.Lexical, uc.deps.Dense)
	if err != nil {
		return nil, err
	}
	uc.swap(snap)
	uc.deps.Logger.Info("knowledge_base_loaded", "operation", "kb.load", "chunks", kb.Len(), "embed_model", kb.Meta.EmbedModelID)
	return snap, nil
}

func (uc *KnowledgeBaseUseCase) buildLocked(ctx context.Context, trigger domain.BuildTrigger) (*Snapshot, error) {
	started := uc.now()
	snap, docs, err := uc.build(ctx)
	elapsed := uc.now().Sub(started)
	if uc.deps.Observer != nil {
		uc.deps.Observer.ObserveKnowledgeBaseBuild(string(trigger), snap.Len(), elapsed, err)
	}
	if err != nil {
		uc.deps.Logger.Warn("knowledge_base_build_failed", "operation", "kb.build", "trigger", trigger, "error", err)
		return nil, err
	}

	uc.swap(snap)
	uc.deps.Logger.Info("knowledge_base_built",
		"operation", "kb.build",
		"trigger", trigger,
		"documents", docs,
		"chunks", snap.Len(),
		"duration_ms", elapsed.Milliseconds(),
	)

	uc.recordBuild(ctx, trigger, snap, docs, elapsed)
	if uc.deps.Notifier != nil {
		if err := uc.deps.Notifier.PublishKnowledgeBaseUpdated(ctx, domain.StatusOf(snap.KB)); err != nil {
			uc.deps.Logger.Warn("knowledge_base_notify_failed", "error", err)
		}
	}
	return snap, nil
}

func (uc *KnowledgeBaseUseCase) build(ctx context.Context) (*Snapshot, int, error) {
	docs, err := uc.deps.Corpus.ReadAll(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("read corpus: %w", err)
	}
	if len(docs) == 0 {
		return nil, 0, domain.WrapError(domain.ErrEmptyCorpus, "build knowledge base", errors.New("no source documents"))
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}
	chunks := uc.deps.Chunker.Split(uc.deps.Chunker.Normalize(strings.Join(texts, "\n\n")))

	vectors, err := uc.embedChunks(ctx, chunks)
	if err != nil {
		return nil, len(docs), err
	}

	meta := domain.BuildMeta{
		EmbedModelID:    uc.deps.Embedder.ModelID(),
		BuiltAt:         uc.now().UTC(),
		SourceDocuments: len(docs),
		ChunkSize:       uc.opts.ChunkSize,
		ChunkOverlap:    uc.opts.ChunkOverlap,
	}
	if len(vectors) > 0 {
		meta.Dimension = len(vectors[0])
	}
	kb, err := domain.NewKnowledgeBase(chunks, vectors, meta)
	if err != nil {
		return nil, len(docs), err
	}
	snap, err := NewSnapshot(kb, uc.deps.Lexical, uc.deps.Dense)
	if err != nil {
		return nil, len(docs), err
	}
	if err := uc.deps.Store.Save(ctx, kb); err != nil {
		return nil, len(docs), fmt.Errorf("persist knowledge base: %w", err)
	}
	return snap, len(docs), nil
}

// embedChunks embeds in fixed-size batches, several batches in flight, and
// keeps vectors aligned with chunk order.
func (uc *KnowledgeBaseUseCase) embedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	if len(chunks) == 0 {
		return vectors, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.opts.EmbedConcurrency)
	for start := 0; start < len(chunks); start += uc.opts.EmbedBatchSize {
		end := min(start+uc.opts.EmbedBatchSize, len(chunks))
		g.Go(func() error {
			batch, err := uc.deps.Embedder.Embed(gctx, chunks[start:end])
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
			}
			if len(batch) != end-start {
				return domain.WrapError(domain.ErrInvalidInput, "embed chunks",
					fmt.Errorf("vectors/chunks mismatch: %d/%d", len(batch), end-start))
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (uc *KnowledgeBaseUseCase) swap(snap *Snapshot) {
	uc.current.Store(snap)
	if uc.deps.Observer != nil {
		uc.deps.Observer.SetKnowledgeBaseChunks(snap.Len())
	}
}

func (uc *KnowledgeBaseUseCase) recordBuild(ctx context.Context, trigger domain.BuildTrigger, snap *Snapshot, docs int, elapsed time.Duration) {
	if uc.deps.Ledger == nil {
		return
	}
	record := domain.BuildRecord{
		ID:              uuid.NewString(),
		Trigger:         trigger,
		ChunkCount:      snap.Len(),
		SourceDocuments: docs,
		EmbedModelID:    snap.KB.Meta.EmbedModelID,
		BuiltAt:         snap.KB.Meta.BuiltAt,
		Duration:        elapsed,
	}
	if err := uc.deps.Ledger.RecordBuild(ctx, record); err != nil {
		uc.deps.Logger.Warn("build_ledger_write_failed", "build_id", record.ID, "error", err)
	}
}

// ListBuilds reads the build ledger; without a ledger the history is empty.
func (uc *KnowledgeBaseUseCase) ListBuilds(ctx context.Context, limit int) ([]domain.BuildRecord, error) {
	if uc.deps.Ledger == nil {
		return []domain.BuildRecord{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	return uc.deps.Ledger.ListBuilds(ctx, limit)
}
