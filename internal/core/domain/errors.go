package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCorpus         = errors.New("empty corpus")
	ErrEmptyKnowledgeBase  = errors.New("knowledge base empty")
	ErrEmptyQuery          = errors.New("empty question")
	ErrNoRelevantPassage   = errors.New("no relevant passage")
	ErrInvalidInput        = errors.New("invalid input")
	ErrDimensionMismatch   = errors.New("embedding dimension mismatch")
	ErrKnowledgeBaseAbsent = errors.New("knowledge base store not found")
	ErrTemporary           = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
