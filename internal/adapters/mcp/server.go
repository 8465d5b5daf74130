// Package mcpadapter exposes the question answering pipeline as MCP tools
// over stdio.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
	"github.com/kirillkom/hybrid-rag/internal/core/ports"
)

const (
	toolAsk    = "ask_knowledge_base"
	toolSearch = "search_passages"
	toolStatus = "knowledge_base_status"

	maxTopK = 50
)

type Dependencies struct {
	Answerer  ports.QuestionAnswerer
	Searcher  ports.PassageSearcher
	Knowledge ports.KnowledgeBaseManager
}

type Server struct {
	deps Dependencies
	topK int
	mcp  *server.MCPServer
}

func NewServer(deps Dependencies, version string, topK int) *Server {
	if topK <= 0 {
		topK = 6
	}
	s := &Server{
		deps: deps,
		topK: topK,
		mcp:  server.NewMCPServer("hybrid-rag", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool(toolAsk,
		mcp.WithDescription("Answer a question using only the indexed document collection."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question in English or Malayalam.")),
	), s.ask)

	s.mcp.AddTool(mcp.NewTool(toolSearch,
		mcp.WithDescription("Return the reranked passages for a question with their lexical, dense, fused and rerank scores."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Search text.")),
		mcp.WithNumber("top_k", mcp.Description("Number of passages to return."), mcp.Min(1), mcp.Max(maxTopK)),
	), s.search)

	s.mcp.AddTool(mcp.NewTool(toolStatus,
		mcp.WithDescription("Report whether a knowledge base is loaded, its size, embedding model and build time."),
	), s.status)

	return s
}

// ServeStdio blocks until ctx is done or the input stream closes.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

func (s *Server) ask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answer, err := s.deps.Answerer.Answer(ctx, question)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(answer.Text), nil
}

func (s *Server) search(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topK := min(max(request.GetInt("top_k", s.topK), 1), maxTopK)

	passages, err := s.deps.Searcher.Search(ctx, question, topK)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(passages)
}

func (s *Server) status(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.deps.Knowledge.Status(ctx))
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// toolError reports domain failures to the model as tool errors rather than
// protocol errors, so the client can show them.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case domain.IsKind(err, domain.ErrEmptyQuery):
		return mcp.NewToolResultError("Empty question.")
	case domain.IsKind(err, domain.ErrEmptyKnowledgeBase), domain.IsKind(err, domain.ErrEmptyCorpus):
		return mcp.NewToolResultError("Knowledge base empty.")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}
