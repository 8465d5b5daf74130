// Package overlap is a local relevance scorer used when no cross-encoder
// endpoint is configured: the share of query terms found in each passage.
package overlap

import (
	"context"

	"github.com/kirillkom/hybrid-rag/internal/infrastructure/lexical"
)

type Scorer struct{}

func (Scorer) Score(_ context.Context, query string, passages []string) ([]float64, error) {
	queryTokens := toTokenSet(query)
	scores := make([]float64, len(passages))
	for i, passage := range passages {
		scores[i] = tokenOverlap(queryTokens, toTokenSet(passage))
	}
	return scores, nil
}

func tokenOverlap(query, passage map[string]struct{}) float64 {
	if len(query) == 0 || len(passage) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := passage[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

func toTokenSet(s string) map[string]struct{} {
	tokens := lexical.Tokenize(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}
