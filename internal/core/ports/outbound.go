package ports

import (
	"context"
	"io"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

// CorpusReader reads every source document of the corpus.
type CorpusReader interface {
	ReadAll(ctx context.Context) ([]domain.SourceDocument, error)
}

// TextExtractor extracts plain text from one source file.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// KnowledgeBaseStore persists the knowledge base blob.
// Load returns domain.ErrKnowledgeBaseAbsent when nothing has been persisted yet.
type KnowledgeBaseStore interface {
	Save(ctx context.Context, kb *domain.KnowledgeBase) error
	Load(ctx context.Context) (*domain.KnowledgeBase, error)
}

// Chunker canonicalizes and splits text into passages.
type Chunker interface {
	Normalize(text string) string
	Split(text string) []string
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	ModelID() string
}

// LexicalIndex scores every chunk against a query. Tokenization is owned by the
// index so build and query time always agree.
type LexicalIndex interface {
	Scores(query string) []float64
	Len() int
}

type LexicalIndexer interface {
	BuildLexical(texts []string) LexicalIndex
}

// DenseIndex scores every chunk vector against a query vector.
type DenseIndex interface {
	Scores(query []float32) ([]float64, error)
	Len() int
	Dimension() int
}

type DenseIndexer interface {
	BuildDense(vectors [][]float32) (DenseIndex, error)
}

// RelevanceScorer is the cross-encoder: one score per passage, in input order.
type RelevanceScorer interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// AnswerGenerator runs the text generation model on a fully built prompt.
type AnswerGenerator interface {
	Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error)
}

type Translator interface {
	Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error)
}

type LanguageDetector interface {
	Detect(text string) (string, error)
}

// BuildLedger records knowledge base builds.
type BuildLedger interface {
	RecordBuild(ctx context.Context, record domain.BuildRecord) error
	ListBuilds(ctx context.Context, limit int) ([]domain.BuildRecord, error)
}

// RebuildQueue publishes/consumes knowledge base lifecycle events.
type RebuildQueue interface {
	PublishRebuildRequested(ctx context.Context, trigger domain.BuildTrigger) error
	SubscribeRebuildRequested(ctx context.Context, handler func(context.Context, domain.BuildTrigger) error) error
	PublishKnowledgeBaseUpdated(ctx context.Context, status domain.KnowledgeBaseStatus) error
	SubscribeKnowledgeBaseUpdated(ctx context.Context, handler func(context.Context, domain.KnowledgeBaseStatus) error) error
}

// KnowledgeBaseNotifier is the publish-only half of RebuildQueue.
type KnowledgeBaseNotifier interface {
	PublishKnowledgeBaseUpdated(ctx context.Context, status domain.KnowledgeBaseStatus) error
}

// ObjectStorage writes source files into the corpus.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
}

// RebuildRequester schedules a knowledge base rebuild without waiting for it.
type RebuildRequester interface {
	PublishRebuildRequested(ctx context.Context, trigger domain.BuildTrigger) error
}
