package dense

import (
	"fmt"
	"math"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
	"github.com/kirillkom/hybrid-rag/internal/core/ports"
)

// Store keeps chunk embeddings in memory and scores them by cosine similarity.
// Row i belongs to chunk i. It is read-only after NewStore.
type Store struct {
	vectors [][]float32
	norms   []float64
	dim     int
}

func NewStore(vectors [][]float32) (*Store, error) {
	s := &Store{
		vectors: vectors,
		norms:   make([]float64, len(vectors)),
	}
	for i, v := range vectors {
		if i == 0 {
			s.dim = len(v)
		} else if len(v) != s.dim {
			return nil, domain.WrapError(domain.ErrDimensionMismatch, "dense.NewStore",
				fmt.Errorf("vector %d has %d dimensions, expected %d", i, len(v), s.dim))
		}
		s.norms[i] = norm(v)
	}
	return s, nil
}

func (s *Store) Len() int {
	return len(s.vectors)
}

func (s *Store) Dimension() int {
	return s.dim
}

// Scores returns the cosine similarity of query against every stored vector.
func (s *Store) Scores(query []float32) ([]float64, error) {
	scores := make([]float64, len(s.vectors))
	if len(s.vectors) == 0 {
		return scores, nil
	}
	if len(query) != s.dim {
		return nil, domain.WrapError(domain.ErrDimensionMismatch, "dense.Scores",
			fmt.Errorf("query has %d dimensions, store has %d", len(query), s.dim))
	}

	qn := norm(query)
	if qn == 0 {
		return scores, nil
	}
	for i, v := range s.vectors {
		if s.norms[i] == 0 {
			continue
		}
		scores[i] = dot(v, query) / (s.norms[i] * qn)
	}
	return scores, nil
}

// Cosine is the similarity of two equal-length vectors; a zero vector yields 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.WrapError(domain.ErrDimensionMismatch, "dense.Cosine",
			fmt.Errorf("%d != %d", len(a), len(b)))
	}
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot(a, b) / (na * nb), nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

type Indexer struct{}

func (Indexer) BuildDense(vectors [][]float32) (ports.DenseIndex, error) {
	store, err := NewStore(vectors)
	if err != nil {
		return nil, err
	}
	return store, nil
}
