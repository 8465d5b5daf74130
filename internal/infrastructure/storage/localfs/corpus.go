package localfs

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
	"github.com/kirillkom/hybrid-rag/internal/core/ports"
)

// CorpusReader extracts every supported file of the corpus directory. Files are
// read in name order so builds are reproducible.
type CorpusReader struct {
	storage    *Storage
	extractors map[string]ports.TextExtractor
	logger     *slog.Logger
}

// NewCorpusReader maps lowercase extensions (".txt", ".pdf") to extractors.
func NewCorpusReader(storage *Storage, extractors map[string]ports.TextExtractor, logger *slog.Logger) *CorpusReader {
	if logger == nil {
		logger = slog.Default()
	}
	normalized := make(map[string]ports.TextExtractor, len(extractors))
	for ext, x := range extractors {
		normalized[strings.ToLower(ext)] = x
	}
	return &CorpusReader{storage: storage, extractors: normalized, logger: logger}
}

func (r *CorpusReader) Supports(name string) bool {
	_, ok := r.extractors[strings.ToLower(filepath.Ext(name))]
	return ok
}

func (r *CorpusReader) ReadAll(ctx context.Context) ([]domain.SourceDocument, error) {
	names, err := r.storage.List(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.SourceDocument, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		extractor, ok := r.extractors[strings.ToLower(filepath.Ext(name))]
		if !ok {
			r.logger.Debug("corpus_file_skipped", "file", name, "reason", "unsupported extension")
			continue
		}
		text, err := extractor.Extract(ctx, r.storage.Path(name))
		if err != nil {
			r.logger.Warn("corpus_file_unreadable", "file", name, "error", err)
			continue
		}
		docs = append(docs, domain.SourceDocument{Name: name, Text: text})
	}
	return docs, nil
}
