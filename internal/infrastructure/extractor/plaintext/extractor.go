package plaintext

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Extractor reads UTF-8 text files. Invalid byte sequences are dropped rather
// than failing the whole file.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}
	text := strings.ToValidUTF8(string(raw), "")
	return strings.TrimPrefix(text, "\ufeff"), nil
}
