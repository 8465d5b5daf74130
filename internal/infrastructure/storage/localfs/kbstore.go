package localfs

import (
	"bufio"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

// KnowledgeBaseStore persists the knowledge base as one gob blob. Writes go to a
// sibling temp file that is renamed over the target, so readers never observe a
// partial blob.
type KnowledgeBaseStore struct {
	path string
}

type storedKnowledgeBase struct {
	Chunks     []string
	Embeddings [][]float32
	Meta       domain.BuildMeta
}

func NewKnowledgeBaseStore(path string) *KnowledgeBaseStore {
	if path == "" {
		path = "./vector_store/knowledge_base.gob"
	}
	return &KnowledgeBaseStore{path: path}
}

func (s *KnowledgeBaseStore) Path() string {
	return s.path
}

func (s *KnowledgeBaseStore) Save(ctx context.Context, kb *domain.KnowledgeBase) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if kb == nil {
		return fmt.Errorf("save knowledge base: %w", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := bufio.NewWriter(tmp)
	blob := storedKnowledgeBase{Chunks: kb.Texts(), Embeddings: kb.Embeddings, Meta: kb.Meta}
	if err := gob.NewEncoder(w).Encode(&blob); err != nil {
		tmp.Close()
		return fmt.Errorf("encode knowledge base: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush knowledge base: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync knowledge base: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close knowledge base: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace knowledge base: %w", err)
	}
	return nil
}

func (s *KnowledgeBaseStore) Load(ctx context.Context) (*domain.KnowledgeBase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrKnowledgeBaseAbsent, "localfs.Load", err)
		}
		return nil, fmt.Errorf("open knowledge base: %w", err)
	}
	defer f.Close()

	var blob storedKnowledgeBase
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&blob); err != nil {
		return nil, fmt.Errorf("decode knowledge base %s: %w", s.path, err)
	}
	kb, err := domain.NewKnowledgeBase(blob.Chunks, blob.Embeddings, blob.Meta)
	if err != nil {
		return nil, fmt.Errorf("load knowledge base %s: %w", s.path, err)
	}
	return kb, nil
}
