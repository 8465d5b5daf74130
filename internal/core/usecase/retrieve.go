package usecase

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
	"github.com/kirillkom/hybrid-rag/internal/core/ports"
)

type RetrievalOptions struct {
	Weights    FusionWeights
	Candidates int
	TopK       int
}

func DefaultRetrievalOptions() RetrievalOptions {
	return RetrievalOptions{
		Weights:    DefaultFusionWeights(),
		Candidates: 30,
		TopK:       6,
	}
}

// Retriever runs hybrid retrieval against one snapshot: lexical and dense
// scoring, min-max fusion, then cross-encoder rerank.
type Retriever struct {
	embedder ports.Embedder
	scorer   ports.RelevanceScorer
	opts     RetrievalOptions
}

func NewRetriever(embedder ports.Embedder, scorer ports.RelevanceScorer, opts RetrievalOptions) *Retriever {
	def := DefaultRetrievalOptions()
	if opts.Weights.Lexical < 0 || opts.Weights.Dense < 0 || opts.Weights.Lexical+opts.Weights.Dense == 0 {
		opts.Weights = def.Weights
	}
	if opts.Candidates <= 0 {
		opts.Candidates = def.Candidates
	}
	if opts.TopK <= 0 {
		opts.TopK = def.TopK
	}
	return &Retriever{embedder: embedder, scorer: scorer, opts: opts}
}

func (r *Retriever) TopK() int {
	return r.opts.TopK
}

// Retrieve returns at most topK passages (the configured default when topK <= 0).
// An empty result means nothing relevant was found.
func (r *Retriever) Retrieve(ctx context.Context, snap *Snapshot, query string, topK int) ([]domain.ScoredCandidate, error) {
	if snap.Len() == 0 {
		return []domain.ScoredCandidate{}, nil
	}
	if topK <= 0 {
		topK = r.opts.TopK
	}

	var lexical, dense []float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lexical = snap.Lexical.Scores(query)
		return nil
	})
	g.Go(func() error {
		vector, err := r.embedder.EmbedQuery(gctx, strings.ToLower(query))
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		scores, err := snap.Dense.Scores(vector)
		if err != nil {
			return fmt.Errorf("dense scores: %w", err)
		}
		dense = scores
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused, err := fuseScores(snap.KB.Texts(), lexical, dense, r.opts.Weights)
	if err != nil {
		return nil, err
	}
	candidates := topCandidates(fused, min(r.opts.Candidates, len(fused)))
	return rerankCandidates(ctx, query, candidates, r.scorer, topK)
}
