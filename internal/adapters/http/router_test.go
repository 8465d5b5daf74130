package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/hybrid-rag/internal/config"
	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

func postJSON(handler http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func decodeResponse(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestHandler(t, config.Config{}, defaultDeps())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestGenerateReturnsAnswer(t *testing.T) {
	handler := newTestHandler(t, config.Config{}, defaultDeps())
	res := postJSON(handler, "/generate", `{"question":"What is BM25?"}`)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if got := decodeResponse(t, res)["response"]; got != "grounded answer" {
		t.Fatalf("unexpected response %v", got)
	}
}

func TestGenerateRejectsBlankQuestion(t *testing.T) {
	handler := newTestHandler(t, config.Config{}, defaultDeps())
	res := postJSON(handler, "/generate", `{"question":"   "}`)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if got := decodeResponse(t, res)["response"]; got != "Empty question." {
		t.Fatalf("unexpected response %v", got)
	}
}

func TestGenerateRejectsMissingQuestionField(t *testing.T) {
	handler := newTestHandler(t, config.Config{}, defaultDeps())
	for _, body := range []string{`{}`, `{"question":null}`} {
		res := postJSON(handler, "/generate", body)

		if res.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, res.Code)
		}
		if got := decodeResponse(t, res)["response"]; got != "Empty question." {
			t.Fatalf("%s: unexpected response %v", body, got)
		}
	}
}

func TestGenerateAcceptsJSONBodyUnderAnyContentType(t *testing.T) {
	handler := newTestHandler(t, config.Config{}, defaultDeps())
	for _, contentType := range []string{"application/x-www-form-urlencoded", "text/plain", ""} {
		req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"question":"What is Onam?"}`))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)

		if res.Code != http.StatusOK {
			t.Fatalf("content type %q: expected 200, got %d", contentType, res.Code)
		}
		if got := decodeResponse(t, res)["response"]; got != "grounded answer" {
			t.Fatalf("content type %q: unexpected response %v", contentType, got)
		}
	}
}

func TestGenerateMapsEmptyKnowledgeBaseTo400(t *testing.T) {
	deps := defaultDeps()
	deps.Answerer = answererFake{err: domain.WrapError(domain.ErrEmptyKnowledgeBase, "answer", domain.ErrEmptyCorpus)}
	handler := newTestHandler(t, config.Config{}, deps)
	res := postJSON(handler, "/generate", `{"question":"anything"}`)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if got := decodeResponse(t, res)["response"]; got != "Knowledge base empty." {
		t.Fatalf("unexpected response %v", got)
	}
}

func TestGenerateReturnsNoAnswerAs200(t *testing.T) {
	deps := defaultDeps()
	deps.Answerer = answererFake{answer: &domain.Answer{Text: domain.NoAnswerText, NoContext: true}}
	handler := newTestHandler(t, config.Config{}, deps)
	res := postJSON(handler, "/generate", `{"question":"unrelated"}`)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := decodeResponse(t, res)["response"]; got != domain.NoAnswerText {
		t.Fatalf("unexpected response %v", got)
	}
}

func TestGenerateMapsTemporaryTo503(t *testing.T) {
	deps := defaultDeps()
	deps.Answerer = answererFake{err: domain.WrapError(domain.ErrTemporary, "generate", errors.New("ollama down"))}
	handler := newTestHandler(t, config.Config{}, deps)
	res := postJSON(handler, "/generate", `{"question":"q"}`)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestGenerateRecoversFromPanic(t *testing.T) {
	deps := defaultDeps()
	deps.Answerer = answererFake{panics: true}
	handler := newTestHandler(t, config.Config{}, deps)
	res := postJSON(handler, "/generate", `{"question":"q"}`)

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	deps := defaultDeps()
	deps.Knowledge = knowledgeFake{status: domain.KnowledgeBaseStatus{
		Status: domain.KnowledgeBaseStatusReady, NumChunks: 12, EmbedModel: "nomic", BuiltAt: "2026-01-02 03:04:05",
	}}
	handler := newTestHandler(t, config.Config{}, deps)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/status", nil))

	body := decodeResponse(t, res)
	if body["status"] != "ready" || body["num_chunks"] != float64(12) || body["built_at"] != "2026-01-02 03:04:05" {
		t.Fatalf("unexpected status body %v", body)
	}
}

func TestSearchBindsTopK(t *testing.T) {
	var gotTopK int
	deps := defaultDeps()
	deps.Searcher = searcherFake{gotTopK: &gotTopK}
	handler := newTestHandler(t, config.Config{RAGTopK: 6}, deps)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/search?question=bm25&top_k=3", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if gotTopK != 3 {
		t.Fatalf("expected top_k 3, got %d", gotTopK)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/search?question=bm25", nil))
	if gotTopK != 6 {
		t.Fatalf("expected default top_k 6, got %d", gotTopK)
	}
}

func TestSearchRejectsInvalidTopK(t *testing.T) {
	handler := newTestHandler(t, config.Config{}, defaultDeps())
	for _, target := range []string{"/v1/search?question=x&top_k=abc", "/v1/search?question=x&top_k=0", "/v1/search"} {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, target, nil))
		if res.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, res.Code)
		}
	}
}

func TestRebuildRunsInProcessWithoutQueue(t *testing.T) {
	var rebuilds int
	deps := defaultDeps()
	deps.Knowledge = knowledgeFake{rebuilds: &rebuilds}
	handler := newTestHandler(t, config.Config{}, deps)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/admin/rebuild", nil))
	if res.Code != http.StatusOK || rebuilds != 1 {
		t.Fatalf("expected one in-process rebuild, got code=%d rebuilds=%d", res.Code, rebuilds)
	}
}

func TestRebuildEmptyCorpusIs400(t *testing.T) {
	deps := defaultDeps()
	deps.Knowledge = knowledgeFake{rebuildErr: domain.ErrEmptyCorpus}
	handler := newTestHandler(t, config.Config{}, deps)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/admin/rebuild", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestRebuildPublishesWhenQueueConfigured(t *testing.T) {
	var triggers []domain.BuildTrigger
	deps := defaultDeps()
	deps.Rebuilds = requesterFake{triggers: &triggers}
	handler := newTestHandler(t, config.Config{}, deps)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/admin/rebuild", nil))
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
	if len(triggers) != 1 || triggers[0] != domain.BuildTriggerManual {
		t.Fatalf("unexpected triggers %v", triggers)
	}
}

func TestUploadDocument(t *testing.T) {
	deps := defaultDeps()
	deps.Ingestor = ingestorFake{}
	handler := newTestHandler(t, config.Config{}, deps)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("hello corpus"))
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if got := decodeResponse(t, res)["name"]; got != "notes.txt" {
		t.Fatalf("unexpected name %v", got)
	}
}

func TestUploadRequiresFileField(t *testing.T) {
	deps := defaultDeps()
	deps.Ingestor = ingestorFake{}
	handler := newTestHandler(t, config.Config{}, deps)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("other", "value")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadRouteAbsentWithoutIngestor(t *testing.T) {
	handler := newTestHandler(t, config.Config{}, defaultDeps())
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", strings.NewReader(""))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}
