package domain

import (
	"fmt"
	"time"
)

// Chunk is one indexable passage. ID is its ordinal position in the knowledge base
// and indexes the lexical and dense stores in lockstep.
type Chunk struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type BuildMeta struct {
	EmbedModelID    string    `json:"embed_model_id"`
	BuiltAt         time.Time `json:"built_at"`
	Dimension       int       `json:"dimension"`
	SourceDocuments int       `json:"source_documents"`
	ChunkSize       int       `json:"chunk_size"`
	ChunkOverlap    int       `json:"chunk_overlap"`
}

// KnowledgeBase is the persisted aggregate. It is never mutated after construction;
// a rebuild produces a new value.
type KnowledgeBase struct {
	Chunks     []Chunk
	Embeddings [][]float32
	Meta       BuildMeta
}

func NewKnowledgeBase(texts []string, embeddings [][]float32, meta BuildMeta) (*KnowledgeBase, error) {
	if len(texts) != len(embeddings) {
		return nil, WrapError(
			ErrInvalidInput,
			"new knowledge base",
			fmt.Errorf("chunks/embeddings mismatch: %d/%d", len(texts), len(embeddings)),
		)
	}
	chunks := make([]Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = Chunk{ID: i, Text: text}
	}
	return &KnowledgeBase{
		Chunks:     chunks,
		Embeddings: embeddings,
		Meta:       meta,
	}, nil
}

func (kb *KnowledgeBase) Len() int {
	if kb == nil {
		return 0
	}
	return len(kb.Chunks)
}

func (kb *KnowledgeBase) Texts() []string {
	if kb == nil {
		return nil
	}
	out := make([]string, len(kb.Chunks))
	for i, chunk := range kb.Chunks {
		out[i] = chunk.Text
	}
	return out
}

type SourceDocument struct {
	Name string
	Text string
}

const (
	KnowledgeBaseStatusEmpty = "empty"
	KnowledgeBaseStatusReady = "ready"
)

const StatusTimeLayout = "2006-01-02 15:04:05"

type KnowledgeBaseStatus struct {
	Status     string `json:"status"`
	NumChunks  int    `json:"num_chunks"`
	EmbedModel string `json:"embed_model,omitempty"`
	BuiltAt    string `json:"built_at,omitempty"`
}

// StatusOf reports "empty" only when no knowledge base is loaded. A loaded
// base with zero chunks is still "ready".
func StatusOf(kb *KnowledgeBase) KnowledgeBaseStatus {
	if kb == nil {
		return KnowledgeBaseStatus{Status: KnowledgeBaseStatusEmpty}
	}
	return KnowledgeBaseStatus{
		Status:     KnowledgeBaseStatusReady,
		NumChunks:  kb.Len(),
		EmbedModel: kb.Meta.EmbedModelID,
		BuiltAt:    kb.Meta.BuiltAt.Local().Format(StatusTimeLayout),
	}
}

type BuildTrigger string

const (
	BuildTriggerStartup BuildTrigger = "startup"
	BuildTriggerManual  BuildTrigger = "manual"
	BuildTriggerQueue   BuildTrigger = "queue"
	BuildTriggerCLI     BuildTrigger = "cli"
)

// BuildRecord is one row of the build ledger.
type BuildRecord struct {
	ID              string        `json:"id"`
	Trigger         BuildTrigger  `json:"trigger"`
	ChunkCount      int           `json:"chunk_count"`
	SourceDocuments int           `json:"source_documents"`
	EmbedModelID    string        `json:"embed_model_id"`
	BuiltAt         time.Time     `json:"built_at"`
	Duration        time.Duration `json:"duration"`
}

// UploadedDocument describes a file accepted into the corpus.
type UploadedDocument struct {
	Name             string    `json:"name"`
	Size             int64     `json:"size"`
	UploadedAt       time.Time `json:"uploaded_at"`
	RebuildScheduled bool      `json:"rebuild_scheduled"`
}
