package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
	"github.com/kirillkom/hybrid-rag/internal/core/ports"
)

// rerankCandidates scores the fused candidates with the cross-encoder and keeps
// the topK best. Raw scores are used as-is; equal scores keep fused order.
func rerankCandidates(
	ctx context.Context,
	query string,
	candidates []domain.ScoredCandidate,
	scorer ports.RelevanceScorer,
	topK int,
) ([]domain.ScoredCandidate, error) {
	if len(candidates) == 0 {
		return []domain.ScoredCandidate{}, nil
	}

	passages := make([]string, len(candidates))
	for i, c := range candidates {
		passages[i] = c.Text
	}
	scores, err := scorer.Score(ctx, query, passages)
	if err != nil {
		return nil, fmt.Errorf("rerank candidates: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("rerank candidates: got %d scores for %d passages", len(scores), len(candidates))
	}

	out := make([]domain.ScoredCandidate, len(candidates))
	copy(out, candidates)
	for i := range out {
		score := scores[i]
		out[i].RerankScore = &score
	}
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].RerankScore > *out[j].RerankScore
	})

	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}
