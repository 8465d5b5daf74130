package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
	"github.com/kirillkom/hybrid-rag/internal/core/ports"
)

// SnapshotSource hands out the live knowledge base snapshot.
type SnapshotSource interface {
	Load(ctx context.Context) (*Snapshot, error)
}

type QueryUseCase struct {
	snapshots  SnapshotSource
	retriever  *Retriever
	generator  ports.AnswerGenerator
	translator ports.Translator
	detector   ports.LanguageDetector
	logger     *slog.Logger
}

func NewQueryUseCase(
	snapshots SnapshotSource,
	retriever *Retriever,
	generator ports.AnswerGenerator,
	translator ports.Translator,
	detector ports.LanguageDetector,
	logger *slog.Logger,
) *QueryUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryUseCase{
		snapshots:  snapshots,
		retriever:  retriever,
		generator:  generator,
		translator: translator,
		detector:   detector,
		logger:     logger,
	}
}

// Answer runs the full pipeline. A question with no relevant passage gets the
// fixed no-answer reply rather than an error.
func (uc *QueryUseCase) Answer(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrEmptyQuery, "answer", errors.New("question is blank"))
	}

	lang := uc.detectLanguage(question)
	queryText, err := uc.toPrimary(ctx, question, lang)
	if err != nil {
		return nil, err
	}

	passages, err := uc.retrieve(ctx, queryText, 0)
	if errors.Is(err, domain.ErrNoRelevantPassage) {
		return &domain.Answer{Text: domain.NoAnswerText, Language: lang, Sources: []domain.ScoredCandidate{}, NoContext: true}, nil
	}
	if err != nil {
		return nil, err
	}

	style := selectAnswerStyle(question)
	raw, err := uc.generator.Generate(ctx, buildAnswerPrompt(style, queryText, passages), style.options())
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	text := cleanAnswer(raw)
	if text == "" {
		text = domain.NoAnswerText
	}

	if lang == domain.LanguageMalayalam {
		text, err = uc.translator.Translate(ctx, text, domain.LanguageEnglish, domain.LanguageMalayalam)
		if err != nil {
			return nil, fmt.Errorf("translate answer: %w", err)
		}
	}

	return &domain.Answer{
		Text:     text,
		Language: lang,
		Sources:  passages,
	}, nil
}

// Search returns the reranked passages for question without generating.
func (uc *QueryUseCase) Search(ctx context.Context, question string, topK int) ([]domain.ScoredCandidate, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrEmptyQuery, "search", errors.New("question is blank"))
	}
	queryText, err := uc.toPrimary(ctx, question, uc.detectLanguage(question))
	if err != nil {
		return nil, err
	}
	passages, err := uc.retrieve(ctx, queryText, topK)
	if errors.Is(err, domain.ErrNoRelevantPassage) {
		return []domain.ScoredCandidate{}, nil
	}
	return passages, err
}

func (uc *QueryUseCase) retrieve(ctx context.Context, queryText string, topK int) ([]domain.ScoredCandidate, error) {
	snap, err := uc.snapshots.Load(ctx)
	if err != nil {
		if domain.IsKind(err, domain.ErrEmptyCorpus) {
			return nil, domain.WrapError(domain.ErrEmptyKnowledgeBase, "load knowledge base", err)
		}
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}

	passages, err := uc.retriever.Retrieve(ctx, snap, queryText, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve passages: %w", err)
	}
	if len(passages) == 0 {
		return nil, domain.ErrNoRelevantPassage
	}
	return passages, nil
}

// detectLanguage never fails: anything other than Malayalam is served in English.
func (uc *QueryUseCase) detectLanguage(question string) string {
	lang, err := uc.detector.Detect(question)
	if err != nil {
		uc.logger.Debug("language_detection_failed", "error", err)
		return domain.LanguageEnglish
	}
	if lang == domain.LanguageMalayalam {
		return lang
	}
	return domain.LanguageEnglish
}

func (uc *QueryUseCase) toPrimary(ctx context.Context, question, lang string) (string, error) {
	if lang != domain.LanguageMalayalam {
		return question, nil
	}
	translated, err := uc.translator.Translate(ctx, question, domain.LanguageMalayalam, domain.LanguageEnglish)
	if err != nil {
		return "", fmt.Errorf("translate question: %w", err)
	}
	return translated, nil
}
