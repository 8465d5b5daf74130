package dense

import (
	"errors"
	"math"
	"testing"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

func TestStoreScores(t *testing.T) {
	store, err := NewStore([][]float32{{1, 0}, {0, 1}, {1, 1}, {0, 0}})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	scores, err := store.Scores([]float32{2, 0})
	if err != nil {
		t.Fatalf("Scores() error = %v", err)
	}
	want := []float64{1, 0, 1 / math.Sqrt2, 0}
	for i := range want {
		if math.Abs(scores[i]-want[i]) > 1e-9 {
			t.Fatalf("score[%d] = %f, want %f", i, scores[i], want[i])
		}
	}
}

func TestStoreRejectsInconsistentDimensions(t *testing.T) {
	_, err := NewStore([][]float32{{1, 0}, {1, 0, 0}})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}

func TestStoreRejectsQueryDimensionMismatch(t *testing.T) {
	store, err := NewStore([][]float32{{1, 0}})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if _, err := store.Scores([]float32{1, 0, 0}); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}

func TestStoreEmpty(t *testing.T) {
	store, err := NewStore(nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	scores, err := store.Scores([]float32{1, 2, 3})
	if err != nil {
		t.Fatalf("Scores() error = %v", err)
	}
	if len(scores) != 0 {
		t.Fatalf("expected no scores, got %v", scores)
	}
}

func TestStoreZeroQuery(t *testing.T) {
	store, _ := NewStore([][]float32{{1, 2}, {3, 4}})
	scores, err := store.Scores([]float32{0, 0})
	if err != nil {
		t.Fatalf("Scores() error = %v", err)
	}
	for i, s := range scores {
		if s != 0 {
			t.Fatalf("score[%d] = %f, want 0", i, s)
		}
	}
}

func TestCosine(t *testing.T) {
	got, err := Cosine([]float32{1, 2, 3}, []float32{1, 2, 3})
	if err != nil || math.Abs(got-1) > 1e-9 {
		t.Fatalf("Cosine(identical) = %f, %v", got, err)
	}
	got, err = Cosine([]float32{1, 0}, []float32{-1, 0})
	if err != nil || math.Abs(got+1) > 1e-9 {
		t.Fatalf("Cosine(opposite) = %f, %v", got, err)
	}
	if _, err := Cosine([]float32{1}, []float32{1, 2}); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}

func TestIndexerBuildDense(t *testing.T) {
	ix, err := Indexer{}.BuildDense([][]float32{{1, 0, 0}, {0, 1, 0}})
	if err != nil {
		t.Fatalf("BuildDense() error = %v", err)
	}
	if ix.Len() != 2 || ix.Dimension() != 3 {
		t.Fatalf("unexpected shape: len=%d dim=%d", ix.Len(), ix.Dimension())
	}
}
