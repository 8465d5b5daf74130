package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/hybrid-rag/internal/config"
	"github.com/kirillkom/hybrid-rag/internal/core/domain"
	"github.com/kirillkom/hybrid-rag/internal/core/ports"
)

const serviceName = "api"

// Metrics is the slice of the Prometheus recorder the router needs.
type Metrics interface {
	Middleware(service string, next http.Handler) http.Handler
	Handler() http.Handler
	RecordRAGObservation(service, endpoint string, passageCount int, duration time.Duration)
	RecordLanguage(service, language string)
	RecordRejected(service, reason string)
}

// Dependencies wires the router to the core. Ingestor, Rebuilds and Metrics
// are optional.
type Dependencies struct {
	Answerer  ports.QuestionAnswerer
	Searcher  ports.PassageSearcher
	Knowledge ports.KnowledgeBaseManager
	Ingestor  ports.DocumentIngestor
	Rebuilds  ports.RebuildRequester
	Metrics   Metrics
}

type Router struct {
	deps      Dependencies
	validator *requestValidator

	topK           int
	uploadMaxBytes int64

	rateLimitRPS     float64
	rateLimitBurst   int
	maxInFlight      int
	backpressureWait time.Duration
}

func NewRouter(cfg config.Config, deps Dependencies) (*Router, error) {
	validator, err := newRequestValidator()
	if err != nil {
		return nil, err
	}
	uploadMaxBytes := cfg.UploadMaxBytes
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = 32 << 20
	}
	return &Router{
		deps:             deps,
		validator:        validator,
		topK:             cfg.RAGTopK,
		uploadMaxBytes:   uploadMaxBytes,
		rateLimitRPS:     cfg.APIRateLimitRPS,
		rateLimitBurst:   cfg.APIRateLimitBurst,
		maxInFlight:      cfg.APIBackpressureMaxInFlight,
		backpressureWait: cfg.APIBackpressureWait,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /generate", rt.generate)
	mux.HandleFunc("GET /status", rt.status)
	mux.HandleFunc("GET /v1/search", rt.search)
	mux.HandleFunc("POST /v1/admin/rebuild", rt.rebuild)
	if rt.deps.Ingestor != nil {
		mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	}
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}

	var onReject rejectionRecorder
	if rt.deps.Metrics != nil {
		onReject = func(reason string) { rt.deps.Metrics.RecordRejected(serviceName, reason) }
	}

	var handler http.Handler = rt.validator.middleware(mux)
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.backpressureWait, onReject)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst, onReject)
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = recoverMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generateRequest struct {
	Question string `json:"question"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (rt *Router) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, generateResponse{Response: "Invalid JSON."})
		return
	}

	start := time.Now()
	answer, err := rt.deps.Answerer.Answer(r.Context(), req.Question)
	if err != nil {
		rt.logFailure(r, "generate", err)
		writeJSON(w, mapErrorToHTTPStatus(err), generateResponse{Response: responseMessage(err)})
		return
	}

	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordRAGObservation(serviceName, "/generate", len(answer.Sources), time.Since(start))
		rt.deps.Metrics.RecordLanguage(serviceName, answer.Language)
	}
	writeJSON(w, http.StatusOK, generateResponse{Response: answer.Text})
}

func (rt *Router) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.deps.Knowledge.Status(r.Context()))
}

type searchResponse struct {
	Question string                   `json:"question"`
	Passages []domain.ScoredCandidate `json:"passages"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	var (
		question string
		topK     *int
	)
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "question", query, &question); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "top_k", query, &topK); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	k := rt.topK
	if topK != nil {
		k = *topK
	}

	start := time.Now()
	passages, err := rt.deps.Searcher.Search(r.Context(), question, k)
	if err != nil {
		rt.logFailure(r, "search", err)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": responseMessage(err)})
		return
	}
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordRAGObservation(serviceName, "/v1/search", len(passages), time.Since(start))
	}
	writeJSON(w, http.StatusOK, searchResponse{Question: question, Passages: passages})
}

// rebuild hands the work to the queue when one is configured, otherwise it
// rebuilds in-process and answers with the new status.
func (rt *Router) rebuild(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Rebuilds != nil {
		if err := rt.deps.Rebuilds.PublishRebuildRequested(r.Context(), domain.BuildTriggerManual); err != nil {
			rt.logFailure(r, "rebuild", err)
			writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": responseMessage(err)})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
		return
	}

	// Finish the build even if the client goes away.
	status, err := rt.deps.Knowledge.Rebuild(context.WithoutCancel(r.Context()), domain.BuildTriggerManual)
	if err != nil {
		rt.logFailure(r, "rebuild", err)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": responseMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.uploadMaxBytes)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.deps.Ingestor.Upload(r.Context(), fileHeader.Filename, file)
	if err != nil {
		rt.logFailure(r, "upload", err)
		message := responseMessage(err)
		if domain.IsKind(err, domain.ErrInvalidInput) {
			message = err.Error()
		}
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": message})
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) logFailure(r *http.Request, operation string, err error) {
	level := slog.LevelError
	if mapErrorToHTTPStatus(err) < http.StatusInternalServerError {
		level = slog.LevelInfo
	}
	slog.Log(r.Context(), level, "request_failed",
		"request_id", requestIDFromContext(r.Context()),
		"operation", operation,
		"error", err,
	)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
