package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

func TestKnowledgeBaseLoadBuildsWhenStoreMissing(t *testing.T) {
	uc, store, _ := newKnowledgeFixture(domain.SourceDocument{Name: "kerala.txt", Text: kbCorpus})

	snap, err := uc.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.Len() == 0 {
		t.Fatalf("expected chunks after self-healing build")
	}
	if store.saves != 1 {
		t.Fatalf("expected knowledge base to be persisted once, got %d", store.saves)
	}
	if uc.Current() != snap {
		t.Fatalf("expected loaded snapshot to become current")
	}
	if snap.Lexical.Len() != snap.Len() || snap.Dense.Len() != snap.Len() {
		t.Fatalf("indexes out of lockstep: chunks=%d lexical=%d dense=%d", snap.Len(), snap.Lexical.Len(), snap.Dense.Len())
	}

	again, err := uc.Load(context.Background())
	if err != nil || again != snap || store.loads != 1 {
		t.Fatalf("second Load must reuse the snapshot: err=%v loads=%d", err, store.loads)
	}
}

func TestKnowledgeBaseEmptyCorpus(t *testing.T) {
	uc, store, _ := newKnowledgeFixture()

	_, err := uc.Load(context.Background())
	if !errors.Is(err, domain.ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
	if uc.Current() != nil || store.saves != 0 {
		t.Fatalf("empty corpus must not install or persist a knowledge base")
	}
	status := uc.Status(context.Background())
	if status.Status != domain.KnowledgeBaseStatusEmpty || status.NumChunks != 0 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestKnowledgeBaseShortDocumentYieldsZeroChunks(t *testing.T) {
	uc, store, embedder := newKnowledgeFixture(domain.SourceDocument{Name: "short.txt", Text: "This sentence is exactly fifty characters long ok."})

	status, err := uc.Rebuild(context.Background(), domain.BuildTriggerManual)
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if status.NumChunks != 0 || status.Status != domain.KnowledgeBaseStatusReady {
		t.Fatalf("a loaded zero-chunk knowledge base is ready, got %+v", status)
	}
	if current := uc.Status(context.Background()); current.Status != domain.KnowledgeBaseStatusReady {
		t.Fatalf("Status() = %+v, want ready", current)
	}
	if store.saves != 1 {
		t.Fatalf("zero-chunk knowledge base must still be persisted")
	}
	if embedder.calls != 0 {
		t.Fatalf("no chunks means no embedding calls, got %d", embedder.calls)
	}
}

func TestKnowledgeBaseRoundTripThroughStore(t *testing.T) {
	uc, store, _ := newKnowledgeFixture(domain.SourceDocument{Name: "kerala.txt", Text: kbCorpus})
	built, err := uc.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	reloaded := NewKnowledgeBaseUseCase(uc.deps, uc.opts)
	reloaded.deps.Store = store
	snap, err := reloaded.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() from store error = %v", err)
	}
	if store.saves != 1 {
		t.Fatalf("loading a persisted knowledge base must not rebuild")
	}
	a, b := built.KB.Texts(), snap.KB.Texts()
	if len(a) != len(b) || snap.KB.Meta.EmbedModelID != built.KB.Meta.EmbedModelID {
		t.Fatalf("round trip mismatch")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs after round trip", i)
		}
	}
}

func TestKnowledgeBaseRebuildFailureKeepsPreviousSnapshot(t *testing.T) {
	uc, _, embedder := newKnowledgeFixture(domain.SourceDocument{Name: "kerala.txt", Text: kbCorpus})
	before, err := uc.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	embedder.err = errors.New("embedding service down")
	status, err := uc.Rebuild(context.Background(), domain.BuildTriggerManual)
	if err == nil {
		t.Fatalf("expected rebuild error")
	}
	if uc.Current() != before || status.NumChunks != before.Len() {
		t.Fatalf("failed rebuild must keep the previous snapshot")
	}
}

func TestKnowledgeBaseRebuildRecordsAndNotifies(t *testing.T) {
	uc, _, _ := newKnowledgeFixture(domain.SourceDocument{Name: "kerala.txt", Text: kbCorpus})
	ledger := &ledgerFake{}
	notifier := &notifierFake{}
	observer := &observerFake{}
	uc.deps.Ledger = ledger
	uc.deps.Notifier = notifier
	uc.deps.Observer = observer

	status, err := uc.Rebuild(context.Background(), domain.BuildTriggerQueue)
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if len(ledger.records) != 1 || ledger.records[0].Trigger != domain.BuildTriggerQueue || ledger.records[0].ChunkCount != status.NumChunks {
		t.Fatalf("unexpected ledger records %+v", ledger.records)
	}
	if ledger.records[0].SourceDocuments != 1 || ledger.records[0].ID == "" {
		t.Fatalf("unexpected ledger record %+v", ledger.records[0])
	}
	if len(notifier.statuses) != 1 || notifier.statuses[0].Status != domain.KnowledgeBaseStatusReady {
		t.Fatalf("unexpected notifications %+v", notifier.statuses)
	}
	if len(observer.builds) != 1 || observer.builds[0] != "queue:ok" || observer.chunks != status.NumChunks {
		t.Fatalf("unexpected observations %+v chunks=%d", observer.builds, observer.chunks)
	}

	history, err := uc.ListBuilds(context.Background(), 5)
	if err != nil || len(history) != 1 {
		t.Fatalf("ListBuilds() = %v, %v", history, err)
	}
}

func TestKnowledgeBaseLedgerFailureDoesNotFailBuild(t *testing.T) {
	uc, _, _ := newKnowledgeFixture(domain.SourceDocument{Name: "kerala.txt", Text: kbCorpus})
	uc.deps.Ledger = &ledgerFake{err: errors.New("db down")}
	if _, err := uc.Rebuild(context.Background(), domain.BuildTriggerManual); err != nil {
		t.Fatalf("ledger failure must not fail the build: %v", err)
	}
}

func TestKnowledgeBaseConcurrentLoadBuildsOnce(t *testing.T) {
	uc, store, _ := newKnowledgeFixture(domain.SourceDocument{Name: "kerala.txt", Text: kbCorpus})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := uc.Load(context.Background()); err != nil {
				t.Errorf("Load() error = %v", err)
			}
		}()
	}
	wg.Wait()
	if store.saves != 1 {
		t.Fatalf("expected exactly one build, got %d", store.saves)
	}
}

func TestKnowledgeBaseReloadPicksUpPersistedBuild(t *testing.T) {
	uc, store, _ := newKnowledgeFixture(domain.SourceDocument{Name: "kerala.txt", Text: kbCorpus})
	if _, err := uc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	replacement, _ := domain.NewKnowledgeBase(
		[]string{"A replacement chunk that came from another process."},
		[][]float32{{1, 0, 0}},
		domain.BuildMeta{EmbedModelID: "other"},
	)
	store.kb = replacement

	status, err := uc.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if status.NumChunks != 1 || status.EmbedModel != "other" {
		t.Fatalf("unexpected status after reload %+v", status)
	}
}

func TestKnowledgeBaseEmbedsInOrderAcrossBatches(t *testing.T) {
	uc, _, embedder := newKnowledgeFixture(domain.SourceDocument{Name: "kerala.txt", Text: kbCorpus})
	snap, err := uc.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.Len() > 2 && embedder.calls < 2 {
		t.Fatalf("expected batched embedding, got %d calls for %d chunks", embedder.calls, snap.Len())
	}
	for i, chunk := range snap.KB.Chunks {
		want := fakeVector(chunk.Text)
		for d := range want {
			if snap.KB.Embeddings[i][d] != want[d] {
				t.Fatalf("embedding %d not aligned with its chunk", i)
			}
		}
	}
}
