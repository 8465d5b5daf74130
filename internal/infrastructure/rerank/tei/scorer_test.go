package tei

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestScorerMapsScoresByIndex(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`[{"index":2,"score":9.5},{"index":0,"score":1.25},{"index":1,"score":-3}]`))
	}))
	defer server.Close()

	scores, err := New(server.URL, time.Second, nil).Score(context.Background(), "Who wrote it?", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	want := []float64{1.25, -3, 9.5}
	for i := range want {
		if scores[i] != want[i] {
			t.Fatalf("scores = %v, want %v", scores, want)
		}
	}
	if payload["query"] != "Who wrote it?" || payload["raw_scores"] != true {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestScorerEmptyInputSkipsCall(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	scores, err := New(server.URL, time.Second, nil).Score(context.Background(), "q", nil)
	if err != nil || len(scores) != 0 || called {
		t.Fatalf("unexpected result: scores=%v err=%v called=%v", scores, err, called)
	}
}

func TestScorerRejectsMissingScores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"index":0,"score":1}]`))
	}))
	defer server.Close()

	if _, err := New(server.URL, time.Second, nil).Score(context.Background(), "q", []string{"a", "b"}); err == nil {
		t.Fatalf("expected error for missing score")
	}
}
