// Package tei scores passages with a cross-encoder served by
// text-embeddings-inference (POST /rerank).
package tei

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/hybrid-rag/internal/infrastructure/httpclient"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/resilience"
)

type Scorer struct {
	http     *httpclient.Client
	executor *resilience.Executor
}

func New(baseURL string, timeout time.Duration, executor *resilience.Executor) *Scorer {
	return &Scorer{
		http:     httpclient.New("rerank", baseURL, timeout),
		executor: executor,
	}
}

type rerankHit struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Score returns one raw relevance score per passage, in input order.
func (s *Scorer) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}
	payload := map[string]any{
		"query":      query,
		"texts":      passages,
		"raw_scores": true,
		"truncate":   true,
	}

	var hits []rerankHit
	err := s.executor.Execute(ctx, "rerank.score", func(ctx context.Context) error {
		hits = hits[:0]
		return s.http.PostJSON(ctx, "/rerank", payload, &hits, "score")
	}, httpclient.Classify)
	if err != nil {
		return nil, httpclient.WrapTemporary("rerank.score", err)
	}

	scores := make([]float64, len(passages))
	seen := make([]bool, len(passages))
	for _, hit := range hits {
		if hit.Index < 0 || hit.Index >= len(passages) {
			return nil, fmt.Errorf("rerank score: index %d out of range", hit.Index)
		}
		scores[hit.Index] = hit.Score
		seen[hit.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("rerank score: missing score for passage %d", i)
		}
	}
	return scores, nil
}
