package httpadapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/hybrid-rag/internal/config"
	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

type answererFake struct {
	answer *domain.Answer
	err    error
	panics bool
}

func (f answererFake) Answer(_ context.Context, question string) (*domain.Answer, error) {
	if f.panics {
		panic("boom")
	}
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrEmptyQuery, "answer", errors.New("blank"))
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.answer != nil {
		return f.answer, nil
	}
	return &domain.Answer{Text: "grounded answer", Language: "en"}, nil
}

type searcherFake struct {
	gotTopK *int
	err     error
}

func (f searcherFake) Search(_ context.Context, _ string, topK int) ([]domain.ScoredCandidate, error) {
	if f.gotTopK != nil {
		*f.gotTopK = topK
	}
	if f.err != nil {
		return nil, f.err
	}
	return []domain.ScoredCandidate{{ChunkID: 3, Text: "passage", FusedScore: 0.9}}, nil
}

type knowledgeFake struct {
	status     domain.KnowledgeBaseStatus
	rebuildErr error
	rebuilds   *int
}

func (f knowledgeFake) Status(context.Context) domain.KnowledgeBaseStatus { return f.status }

func (f knowledgeFake) Rebuild(context.Context, domain.BuildTrigger) (domain.KnowledgeBaseStatus, error) {
	if f.rebuilds != nil {
		*f.rebuilds++
	}
	if f.rebuildErr != nil {
		return domain.KnowledgeBaseStatus{}, f.rebuildErr
	}
	return domain.KnowledgeBaseStatus{Status: domain.KnowledgeBaseStatusReady, NumChunks: 9}, nil
}

func (f knowledgeFake) Reload(context.Context) (domain.KnowledgeBaseStatus, error) {
	return f.status, nil
}

type ingestorFake struct{}

func (ingestorFake) Upload(_ context.Context, filename string, body io.Reader) (*domain.UploadedDocument, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("empty file"))
	}
	return &domain.UploadedDocument{Name: filename, Size: int64(len(raw)), UploadedAt: time.Now().UTC(), RebuildScheduled: true}, nil
}

type requesterFake struct {
	triggers *[]domain.BuildTrigger
}

func (f requesterFake) PublishRebuildRequested(_ context.Context, trigger domain.BuildTrigger) error {
	*f.triggers = append(*f.triggers, trigger)
	return nil
}

func defaultDeps() Dependencies {
	return Dependencies{
		Answerer:  answererFake{},
		Searcher:  searcherFake{},
		Knowledge: knowledgeFake{status: domain.KnowledgeBaseStatus{Status: domain.KnowledgeBaseStatusEmpty}},
	}
}

func newTestHandler(t *testing.T, cfg config.Config, deps Dependencies) http.Handler {
	t.Helper()
	if cfg.RAGTopK == 0 {
		cfg.RAGTopK = 6
	}
	router, err := NewRouter(cfg, deps)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return router.Handler()
}
