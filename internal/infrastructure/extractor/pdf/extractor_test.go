package pdf

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestExtractRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	if err := os.WriteFile(path, []byte("plain text pretending to be a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewExtractor().Extract(context.Background(), path); err == nil {
		t.Fatalf("expected error for invalid pdf")
	}
}

func TestExtractHonoursCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewExtractor().Extract(ctx, "unused.pdf"); err == nil {
		t.Fatalf("expected context error")
	}
}
