package overlap

import (
	"context"
	"testing"
)

func TestScorerRanksByQueryCoverage(t *testing.T) {
	scores, err := Scorer{}.Score(context.Background(), "risk report", []string{
		"unrelated text",
		"the risk level is high",
		"Risk report for Q3",
	})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if scores[0] != 0 || scores[1] != 0.5 || scores[2] != 1 {
		t.Fatalf("unexpected scores: %v", scores)
	}
}

func TestScorerEmptyQuery(t *testing.T) {
	scores, _ := Scorer{}.Score(context.Background(), "  ", []string{"anything"})
	if scores[0] != 0 {
		t.Fatalf("expected zero score, got %v", scores)
	}
}
