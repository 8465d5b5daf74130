package ports

import (
	"context"
	"io"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for grounded question answering.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question string) (*domain.Answer, error)
}

// PassageSearcher returns the reranked passages without generating an answer.
type PassageSearcher interface {
	Search(ctx context.Context, question string, topK int) ([]domain.ScoredCandidate, error)
}

// KnowledgeBaseManager is the inbound contract for knowledge base lifecycle operations.
type KnowledgeBaseManager interface {
	Status(ctx context.Context) domain.KnowledgeBaseStatus
	Rebuild(ctx context.Context, trigger domain.BuildTrigger) (domain.KnowledgeBaseStatus, error)
	Reload(ctx context.Context) (domain.KnowledgeBaseStatus, error)
}

// BuildHistoryReader exposes the build ledger.
type BuildHistoryReader interface {
	ListBuilds(ctx context.Context, limit int) ([]domain.BuildRecord, error)
}

// DocumentIngestor adds a source file to the corpus and schedules a rebuild.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename string, body io.Reader) (*domain.UploadedDocument, error)
}
