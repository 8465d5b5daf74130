package usecase

import (
	"fmt"
	"sort"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

// minMaxEpsilon keeps the denominator non-zero when the spread is tiny.
const minMaxEpsilon = 1e-8

type FusionWeights struct {
	Lexical float64
	Dense   float64
}

func DefaultFusionWeights() FusionWeights {
	return FusionWeights{Lexical: 0.4, Dense: 0.6}
}

// normalizeMinMax maps scores into [0,1]. A constant vector maps to all zeros.
func normalizeMinMax(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	if hi <= lo {
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / (hi - lo + minMaxEpsilon)
	}
	return out
}

// fuseScores returns one candidate per chunk, in chunk order.
func fuseScores(texts []string, lexical, dense []float64, weights FusionWeights) ([]domain.ScoredCandidate, error) {
	if len(lexical) != len(texts) || len(dense) != len(texts) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "fuse scores",
			fmt.Errorf("score lengths lexical=%d dense=%d chunks=%d", len(lexical), len(dense), len(texts)))
	}

	lexN := normalizeMinMax(lexical)
	denseN := normalizeMinMax(dense)
	out := make([]domain.ScoredCandidate, len(texts))
	for i := range texts {
		out[i] = domain.ScoredCandidate{
			ChunkID:      i,
			Text:         texts[i],
			LexicalScore: lexical[i],
			DenseScore:   dense[i],
			FusedScore:   weights.Dense*denseN[i] + weights.Lexical*lexN[i],
		}
	}
	return out, nil
}

// topCandidates orders by fused score descending, then chunk id ascending, and
// keeps at most limit entries. The input slice is not modified.
func topCandidates(candidates []domain.ScoredCandidate, limit int) []domain.ScoredCandidate {
	out := make([]domain.ScoredCandidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
