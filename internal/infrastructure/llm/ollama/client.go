package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/httpclient"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/resilience"
)

type Client struct {
	http     *httpclient.Client
	executor *resilience.Executor
}

func New(baseURL string, timeout time.Duration, executor *resilience.Executor) *Client {
	return &Client{
		http:     httpclient.New("ollama", baseURL, timeout),
		executor: executor,
	}
}

func (c *Client) post(ctx context.Context, path string, payload any, out any, operation string) error {
	err := c.executor.Execute(ctx, "ollama."+operation, func(ctx context.Context) error {
		return c.http.PostJSON(ctx, path, payload, out, operation)
	}, httpclient.Classify)
	return httpclient.WrapTemporary("ollama."+operation, err)
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

	request := map[string]any{
		"model": e.model,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.post(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d inputs", len(response.Embeddings), len(texts))
	}
	return response.Embeddings, nil
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
	return g.client.generate(ctx, g.model, prompt, opts)
}

func (c *Client) generate(ctx context.Context, model, prompt string, opts domain.GenerateOptions) (string, error) {
	options := map[string]any{
		"temperature": opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	reqBody := map[string]any{
		"model":   model,
		"prompt":  prompt,
		"stream":  false,
		"options": options,
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.post(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

// Translator asks a generation model for a plain translation.
type Translator struct {
	client *Client
	model  string
}

func NewTranslator(client *Client, model string) *Translator {
	return &Translator{client: client, model: model}
}

func (t *Translator) Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error) {
	if strings.TrimSpace(text) == "" || srcLang == tgtLang {
		return text, nil
	}
	out, err := t.client.generate(ctx, t.model, buildTranslationPrompt(text, srcLang, tgtLang), domain.GenerateOptions{
		MaxTokens:   translationMaxTokens(text),
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("translate %s->%s: %w", srcLang, tgtLang, err)
	}
	return out, nil
}
