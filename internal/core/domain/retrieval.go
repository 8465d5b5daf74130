package domain

// ScoredCandidate is a transient per-query ranking entry.
type ScoredCandidate struct {
	ChunkID      int      `json:"chunk_id"`
	Text         string   `json:"text"`
	LexicalScore float64  `json:"lexical_score"`
	DenseScore   float64  `json:"dense_score"`
	FusedScore   float64  `json:"fused_score"`
	RerankScore  *float64 `json:"rerank_score,omitempty"`
}

type Answer struct {
	Text      string            `json:"text"`
	Language  string            `json:"language"`
	Sources   []ScoredCandidate `json:"sources"`
	NoContext bool              `json:"no_context"`
}

// NoAnswerText is the fixed reply when retrieval finds nothing to ground an answer in.
const NoAnswerText = "I don't know about that."

type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

const (
	LanguageEnglish   = "en"
	LanguageMalayalam = "ml"
)
