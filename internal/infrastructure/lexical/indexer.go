package lexical

import "github.com/kirillkom/hybrid-rag/internal/core/ports"

// Indexer builds BM25 indexes from raw chunk texts.
type Indexer struct {
	Params Params
}

func NewIndexer(params Params) *Indexer {
	return &Indexer{Params: params.normalize()}
}

func (x *Indexer) BuildLexical(texts []string) ports.LexicalIndex {
	docs := make([][]string, len(texts))
	for i, text := range texts {
		docs[i] = Tokenize(text)
	}
	return textIndex{Build(docs, x.Params)}
}

type textIndex struct {
	*Index
}

func (t textIndex) Scores(query string) []float64 {
	return t.Index.ScoresText(query)
}
