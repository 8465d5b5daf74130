package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

type blockingRebuilder struct {
	mu       sync.Mutex
	triggers []domain.BuildTrigger
	started  chan struct{}
	release  chan struct{}
}

func (b *blockingRebuilder) Status(context.Context) domain.KnowledgeBaseStatus {
	return domain.KnowledgeBaseStatus{}
}

func (b *blockingRebuilder) Reload(context.Context) (domain.KnowledgeBaseStatus, error) {
	return domain.KnowledgeBaseStatus{}, nil
}

func (b *blockingRebuilder) Rebuild(_ context.Context, trigger domain.BuildTrigger) (domain.KnowledgeBaseStatus, error) {
	b.mu.Lock()
	b.triggers = append(b.triggers, trigger)
	b.mu.Unlock()
	b.started <- struct{}{}
	<-b.release
	return domain.KnowledgeBaseStatus{Status: domain.KnowledgeBaseStatusReady}, nil
}

func (b *blockingRebuilder) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.triggers)
}

func TestRebuildSchedulerCoalescesPendingRequests(t *testing.T) {
	kb := &blockingRebuilder{started: make(chan struct{}, 4), release: make(chan struct{})}
	scheduler := NewRebuildScheduler(kb, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go scheduler.Run(ctx)

	_ = scheduler.PublishRebuildRequested(ctx, domain.BuildTriggerManual)
	<-kb.started

	// One build is running; these three collapse into a single follow-up.
	for i := 0; i < 3; i++ {
		_ = scheduler.PublishRebuildRequested(ctx, domain.BuildTriggerManual)
	}
	close(kb.release)

	select {
	case <-kb.started:
	case <-time.After(time.Second):
		t.Fatalf("follow-up rebuild did not start")
	}
	time.Sleep(50 * time.Millisecond)
	if got := kb.count(); got != 2 {
		t.Fatalf("expected 2 rebuilds, got %d", got)
	}
}
