package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
	"github.com/kirillkom/hybrid-rag/internal/core/ports"
)

// RebuildScheduler is the in-process RebuildRequester used when no queue is
// configured. Requests that arrive while one is pending collapse into it.
type RebuildScheduler struct {
	knowledge ports.KnowledgeBaseManager
	pending   chan domain.BuildTrigger
	logger    *slog.Logger
}

func NewRebuildScheduler(knowledge ports.KnowledgeBaseManager, logger *slog.Logger) *RebuildScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RebuildScheduler{
		knowledge: knowledge,
		pending:   make(chan domain.BuildTrigger, 1),
		logger:    logger,
	}
}

func (s *RebuildScheduler) PublishRebuildRequested(_ context.Context, trigger domain.BuildTrigger) error {
	select {
	case s.pending <- trigger:
	default:
	}
	return nil
}

// Run executes pending rebuilds one at a time until ctx is done.
func (s *RebuildScheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case trigger := <-s.pending:
			status, err := s.knowledge.Rebuild(ctx, trigger)
			if err != nil {
				s.logger.Error("scheduled_rebuild_failed", "trigger", trigger, "error", err)
				continue
			}
			s.logger.Info("scheduled_rebuild_done", "trigger", trigger, "chunks", status.NumChunks)
		}
	}
}
