package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort  string
	LogLevel string

	CorpusDir        string
	KBStorePath      string
	UploadMaxBytes   int64
	UploadExtensions []string
	WatchKBStore     bool
	WatchDebounce    time.Duration

	ChunkSize        int
	ChunkOverlap     int
	ChunkMinLength   int
	EmbedBatchSize   int
	EmbedConcurrency int

	RAGCandidates          int
	RAGTopK                int
	RAGFusionLexicalWeight float64
	RAGFusionDenseWeight   float64

	LLMProvider          string
	LLMTimeout           time.Duration
	OllamaURL            string
	OllamaGenModel       string
	OllamaEmbedModel     string
	OllamaTranslateModel string
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIGenModel       string
	OpenAIEmbedModel     string

	RerankURL     string
	RerankTimeout time.Duration

	NATSURL            string
	NATSRebuildSubject string
	NATSUpdatedSubject string

	PostgresDSN string

	APIRateLimitRPS            float64
	APIRateLimitBurst          int
	APIBackpressureMaxInFlight int
	APIBackpressureWait        time.Duration

	ResilienceRetryMaxAttempts    int
	ResilienceRetryInitialBackoff time.Duration
	ResilienceRetryMaxBackoff     time.Duration
	ResilienceBreakerEnabled      bool
	ResilienceBreakerMinRequests  int
	ResilienceBreakerFailureRatio float64
	ResilienceBreakerOpenTimeout  time.Duration

	WorkerMetricsPort string
}

// Load reads configuration from the environment. When CONFIG_FILE names a
// YAML file of KEY: value pairs, those values apply wherever the matching
// environment variable is unset.
func Load() (Config, error) {
	overlay, err := readOverlay(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}
	e := env{overlay: overlay}

	return Config{
		APIPort:  e.mustEnv("API_PORT", "8000"),
		LogLevel: e.mustEnv("LOG_LEVEL", "info"),

		CorpusDir:        e.mustEnv("CORPUS_DIR", "./uploads"),
		KBStorePath:      e.mustEnv("KB_STORE_PATH", "./vector_store/knowledge_base.gob"),
		UploadMaxBytes:   int64(e.mustEnvInt("UPLOAD_MAX_BYTES", 32<<20)),
		UploadExtensions: e.mustEnvList("UPLOAD_EXTENSIONS", []string{".txt", ".md", ".pdf", ".xlsx"}),
		WatchKBStore:     e.mustEnvBool("KB_WATCH_ENABLED", false),
		WatchDebounce:    e.mustEnvMillis("KB_WATCH_DEBOUNCE_MS", 500),

		ChunkSize:        e.mustEnvInt("CHUNK_SIZE", 700),
		ChunkOverlap:     e.mustEnvInt("CHUNK_OVERLAP", 150),
		ChunkMinLength:   e.mustEnvInt("CHUNK_MIN_LENGTH", 60),
		EmbedBatchSize:   e.mustEnvInt("EMBED_BATCH_SIZE", 32),
		EmbedConcurrency: e.mustEnvInt("EMBED_CONCURRENCY", 4),

		RAGCandidates:          e.mustEnvInt("RAG_CANDIDATES", 30),
		RAGTopK:                e.mustEnvInt("RAG_TOP_K", 6),
		RAGFusionLexicalWeight: e.mustEnvFloat("RAG_FUSION_LEXICAL_WEIGHT", 0.4),
		RAGFusionDenseWeight:   e.mustEnvFloat("RAG_FUSION_DENSE_WEIGHT", 0.6),

		LLMProvider:          strings.ToLower(e.mustEnv("LLM_PROVIDER", "ollama")),
		LLMTimeout:           time.Duration(e.mustEnvInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second,
		OllamaURL:            e.mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:       e.mustEnv("OLLAMA_GEN_MODEL", "qwen2.5:1.5b-instruct"),
		OllamaEmbedModel:     e.mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		OllamaTranslateModel: e.mustEnv("OLLAMA_TRANSLATE_MODEL", ""),
		OpenAIAPIKey:         e.mustEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:        e.mustEnv("OPENAI_BASE_URL", ""),
		OpenAIGenModel:       e.mustEnv("OPENAI_GEN_MODEL", "gpt-4o-mini"),
		OpenAIEmbedModel:     e.mustEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),

		RerankURL:     e.mustEnv("RERANK_URL", ""),
		RerankTimeout: time.Duration(e.mustEnvInt("RERANK_TIMEOUT_SECONDS", 30)) * time.Second,

		NATSURL:            e.mustEnv("NATS_URL", ""),
		NATSRebuildSubject: e.mustEnv("NATS_REBUILD_SUBJECT", "kb.rebuild"),
		NATSUpdatedSubject: e.mustEnv("NATS_UPDATED_SUBJECT", "kb.updated"),

		PostgresDSN: e.mustEnv("POSTGRES_DSN", ""),

		APIRateLimitRPS:            e.mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:          e.mustEnvInt("API_RATE_LIMIT_BURST", 10),
		APIBackpressureMaxInFlight: e.mustEnvInt("API_BACKPRESSURE_MAX_IN_FLIGHT", 0),
		APIBackpressureWait:        e.mustEnvMillis("API_BACKPRESSURE_WAIT_MS", 250),

		ResilienceRetryMaxAttempts:    e.mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", 3),
		ResilienceRetryInitialBackoff: e.mustEnvMillis("RESILIENCE_RETRY_INITIAL_BACKOFF_MS", 100),
		ResilienceRetryMaxBackoff:     e.mustEnvMillis("RESILIENCE_RETRY_MAX_BACKOFF_MS", 400),
		ResilienceBreakerEnabled:      e.mustEnvBool("RESILIENCE_BREAKER_ENABLED", true),
		ResilienceBreakerMinRequests:  e.mustEnvInt("RESILIENCE_BREAKER_MIN_REQUESTS", 10),
		ResilienceBreakerFailureRatio: e.mustEnvFloat("RESILIENCE_BREAKER_FAILURE_RATIO", 0.5),
		ResilienceBreakerOpenTimeout:  e.mustEnvMillis("RESILIENCE_BREAKER_OPEN_TIMEOUT_MS", 30000),

		WorkerMetricsPort: e.mustEnv("WORKER_METRICS_PORT", "9090"),
	}, nil
}

func readOverlay(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	out := make(map[string]string, len(values))
	for key, value := range values {
		switch v := value.(type) {
		case nil:
			continue
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			out[strings.ToUpper(key)] = strings.Join(parts, ",")
		default:
			out[strings.ToUpper(key)] = fmt.Sprint(v)
		}
	}
	return out, nil
}

type env struct {
	overlay map[string]string
}

func (e env) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return e.overlay[key]
}

func (e env) mustEnv(key, fallback string) string {
	v := e.lookup(key)
	if v == "" {
		return fallback
	}
	return v
}

func (e env) mustEnvInt(key string, fallback int) int {
	v := e.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (e env) mustEnvMillis(key string, fallback int) time.Duration {
	return time.Duration(e.mustEnvInt(key, fallback)) * time.Millisecond
}

func (e env) mustEnvFloat(key string, fallback float64) float64 {
	v := e.lookup(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func (e env) mustEnvBool(key string, fallback bool) bool {
	v := e.lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func (e env) mustEnvList(key string, fallback []string) []string {
	v := e.lookup(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
