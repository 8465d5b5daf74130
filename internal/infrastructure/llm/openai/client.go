// Package openai adapts any OpenAI-compatible endpoint as embedder and generator.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/httpclient"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/resilience"
)

type Client struct {
	api      *goopenai.Client
	executor *resilience.Executor
}

// New builds a client; an empty baseURL keeps the library default endpoint.
func New(apiKey, baseURL string, executor *resilience.Executor) *Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		api:      goopenai.NewClientWithConfig(cfg),
		executor: executor,
	}
}

func classify(err error) resilience.ErrorClassification {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return httpclient.Classify(&httpclient.StatusError{StatusCode: apiErr.HTTPStatusCode})
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return httpclient.Classify(&httpclient.StatusError{StatusCode: reqErr.HTTPStatusCode})
	}
	return httpclient.Classify(err)
}

func wrapTemporary(operation string, err error) error {
	return resilience.WrapTemporary(operation, err, classify)
}

type Embedder struct {
	client *Client
	model  string
}

func NewEmbedder(client *Client, model string) *Embedder {
	return &Embedder{client: client, model: model}
}

func (e *Embedder) ModelID() string {
	return e.model
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := resilience.Do(ctx, e.client.executor, "openai.embed", func(ctx context.Context) (goopenai.EmbeddingResponse, error) {
		return e.client.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
			Model: goopenai.EmbeddingModel(e.model),
			Input: texts,
		})
	}, classify)
	if err != nil {
		return nil, wrapTemporary("openai.embed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embed: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return nil, fmt.Errorf("openai embed: index %d out of range", item.Index)
		}
		out[item.Index] = item.Embedding
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

type Generator struct {
	client *Client
	model  string
}

func NewGenerator(client *Client, model string) *Generator {
	return &Generator{client: client, model: model}
}

func (g *Generator) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: g.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	resp, err := resilience.Do(ctx, g.client.executor, "openai.generate", func(ctx context.Context) (goopenai.ChatCompletionResponse, error) {
		return g.client.api.CreateChatCompletion(ctx, req)
	}, classify)
	if err != nil {
		return "", wrapTemporary("openai.generate", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai generate: empty choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var languageNames = map[string]string{
	domain.LanguageEnglish:   "English",
	domain.LanguageMalayalam: "Malayalam",
}

// Translator uses a chat model with a fixed system instruction.
type Translator struct {
	generator *Generator
}

func NewTranslator(client *Client, model string) *Translator {
	return &Translator{generator: NewGenerator(client, model)}
}

func (t *Translator) Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error) {
	if strings.TrimSpace(text) == "" || srcLang == tgtLang {
		return text, nil
	}
	src, tgt := languageNames[srcLang], languageNames[tgtLang]
	if src == "" {
		src = srcLang
	}
	if tgt == "" {
		tgt = tgtLang
	}

	req := goopenai.ChatCompletionRequest{
		Model: t.generator.model,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role:    goopenai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("Translate the user's text from %s to %s. Reply with the translation only.", src, tgt),
			},
			{Role: goopenai.ChatMessageRoleUser, Content: text},
		},
	}
	resp, err := resilience.Do(ctx, t.generator.client.executor, "openai.translate", func(ctx context.Context) (goopenai.ChatCompletionResponse, error) {
		return t.generator.client.api.CreateChatCompletion(ctx, req)
	}, classify)
	if err != nil {
		return "", fmt.Errorf("translate %s->%s: %w", srcLang, tgtLang, wrapTemporary("openai.translate", err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai translate: empty choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
