package usecase

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
	"github.com/kirillkom/hybrid-rag/internal/core/ports"
)

type IngestDocumentUseCase struct {
	storage  ports.ObjectStorage
	rebuilds ports.RebuildRequester
	allowed  map[string]struct{}
	logger   *slog.Logger
}

// NewIngestDocumentUseCase accepts files whose lowercase extension is in allowedExt.
// rebuilds may be nil, in which case the upload only lands in the corpus.
func NewIngestDocumentUseCase(
	storage ports.ObjectStorage,
	rebuilds ports.RebuildRequester,
	allowedExt []string,
	logger *slog.Logger,
) *IngestDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[string]struct{}, len(allowedExt))
	for _, ext := range allowedExt {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	return &IngestDocumentUseCase{
		storage:  storage,
		rebuilds: rebuilds,
		allowed:  allowed,
		logger:   logger,
	}
}

func (uc *IngestDocumentUseCase) Upload(ctx context.Context, filename string, body io.Reader) (*domain.UploadedDocument, error) {
	name := sanitizeFilename(filename)
	if _, ok := uc.allowed[strings.ToLower(filepath.Ext(name))]; !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document",
			fmt.Errorf("unsupported file type %q", filepath.Ext(name)))
	}

	// Reject empty files before anything lands in the corpus.
	buffered := bufio.NewReader(body)
	if _, err := buffered.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("file is empty"))
		}
		return nil, fmt.Errorf("read upload: %w", err)
	}

	counter := &countingReader{r: buffered}
	if err := uc.storage.Save(ctx, name, counter); err != nil {
		return nil, fmt.Errorf("save to corpus: %w", err)
	}

	doc := &domain.UploadedDocument{
		Name:       name,
		Size:       counter.n,
		UploadedAt: time.Now().UTC(),
	}
	if uc.rebuilds != nil {
		if err := uc.rebuilds.PublishRebuildRequested(ctx, domain.BuildTriggerManual); err != nil {
			uc.logger.Warn("rebuild_request_failed", "document", name, "error", err)
		} else {
			doc.RebuildScheduled = true
		}
	}
	return doc, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// sanitizeFilename keeps letters, digits and combining marks of any script, so
// Malayalam names (vowel signs are marks) survive intact; everything else
// becomes '_'.
func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r):
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." || strings.HasPrefix(base, ".") {
		return "document" + base
	}
	return base
}
