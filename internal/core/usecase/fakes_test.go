package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/chunking"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/lexical"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/vector/dense"
)

type corpusFake struct {
	docs []domain.SourceDocument
	err  error
}

func (f *corpusFake) ReadAll(context.Context) ([]domain.SourceDocument, error) {
	return f.docs, f.err
}

type storeFake struct {
	mu     sync.Mutex
	kb     *domain.KnowledgeBase
	saves  int
	loads  int
	saveEr error
}

func (f *storeFake) Save(_ context.Context, kb *domain.KnowledgeBase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveEr != nil {
		return f.saveEr
	}
	f.saves++
	f.kb = kb
	return nil
}

func (f *storeFake) Load(context.Context) (*domain.KnowledgeBase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.kb == nil {
		return nil, domain.WrapError(domain.ErrKnowledgeBaseAbsent, "load", errors.New("no file"))
	}
	return f.kb, nil
}

// embedderFake maps text to a 3-d bag of letters so similar texts get similar vectors.
type embedderFake struct {
	mu      sync.Mutex
	calls   int
	queries []string
	err     error
}

func (f *embedderFake) ModelID() string { return "fake-embed" }

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = fakeVector(t)
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.queries = append(f.queries, text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return fakeVector(text), nil
}

func fakeVector(text string) []float32 {
	t := strings.ToLower(text)
	return []float32{
		float32(strings.Count(t, "kerala")),
		float32(strings.Count(t, "river")),
		float32(strings.Count(t, "tea")) + 0.01,
	}
}

type ledgerFake struct {
	records []domain.BuildRecord
	err     error
}

func (f *ledgerFake) RecordBuild(_ context.Context, r domain.BuildRecord) error {
	f.records = append(f.records, r)
	return f.err
}

func (f *ledgerFake) ListBuilds(_ context.Context, limit int) ([]domain.BuildRecord, error) {
	if limit < len(f.records) {
		return f.records[:limit], nil
	}
	return f.records, nil
}

type notifierFake struct {
	statuses []domain.KnowledgeBaseStatus
}

func (f *notifierFake) PublishKnowledgeBaseUpdated(_ context.Context, s domain.KnowledgeBaseStatus) error {
	f.statuses = append(f.statuses, s)
	return nil
}

type observerFake struct {
	builds []string
	chunks int
}

func (f *observerFake) ObserveKnowledgeBaseBuild(trigger string, _ int, _ time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	f.builds = append(f.builds, trigger+":"+status)
}

func (f *observerFake) SetKnowledgeBaseChunks(n int) { f.chunks = n }

type generatorFake struct {
	prompt string
	opts   domain.GenerateOptions
	reply  string
	err    error
}

func (f *generatorFake) Generate(_ context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	f.prompt = prompt
	f.opts = opts
	return f.reply, f.err
}

type translatorFake struct {
	calls []string
	err   error
}

func (f *translatorFake) Translate(_ context.Context, text, src, tgt string) (string, error) {
	f.calls = append(f.calls, src+"->"+tgt)
	if f.err != nil {
		return "", f.err
	}
	if tgt == domain.LanguageEnglish {
		return "Which river flows through Kerala?", nil
	}
	return "[ml] " + text, nil
}

type detectorFake struct {
	lang string
	err  error
}

func (f detectorFake) Detect(string) (string, error) { return f.lang, f.err }

const kbCorpus = `Kerala is a state on the south-western Malabar coast of India. It was formed in 1956 by merging Malayalam-speaking regions.

The Periyar is the longest river in Kerala. The river flows for about 244 kilometres before reaching the Arabian Sea.

Munnar is a hill station known for tea plantations. The tea estates of Munnar were established in the late nineteenth century.`

func newKnowledgeFixture(docs ...domain.SourceDocument) (*KnowledgeBaseUseCase, *storeFake, *embedderFake) {
	store := &storeFake{}
	embedder := &embedderFake{}
	uc := NewKnowledgeBaseUseCase(KnowledgeBaseDeps{
		Corpus:   &corpusFake{docs: docs},
		Chunker:  chunking.NewSplitter(120, 20, 60),
		Embedder: embedder,
		Store:    store,
		Lexical:  lexical.NewIndexer(lexical.DefaultParams()),
		Dense:    dense.Indexer{},
	}, KnowledgeBaseOptions{EmbedBatchSize: 2, EmbedConcurrency: 2})
	return uc, store, embedder
}
