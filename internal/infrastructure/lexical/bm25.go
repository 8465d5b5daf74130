package lexical

import (
	"maps"
	"math"
	"slices"
)

const (
	DefaultK1      = 1.5
	DefaultB       = 0.75
	DefaultEpsilon = 0.25
)

type Params struct {
	K1      float64
	B       float64
	Epsilon float64
}

func DefaultParams() Params {
	return Params{K1: DefaultK1, B: DefaultB, Epsilon: DefaultEpsilon}
}

func (p Params) normalize() Params {
	def := DefaultParams()
	if p.K1 <= 0 {
		p.K1 = def.K1
	}
	if p.B < 0 || p.B > 1 {
		p.B = def.B
	}
	if p.Epsilon <= 0 {
		p.Epsilon = def.Epsilon
	}
	return p
}

// Index is an Okapi BM25 index over tokenized documents. It is read-only after
// Build and safe for concurrent queries.
type Index struct {
	params    Params
	termFreqs []map[string]int
	docLen    []int
	avgDocLen float64
	idf       map[string]float64
}

func Build(docs [][]string, params Params) *Index {
	params = params.normalize()
	ix := &Index{
		params:    params,
		termFreqs: make([]map[string]int, len(docs)),
		docLen:    make([]int, len(docs)),
		idf:       make(map[string]float64),
	}
	if len(docs) == 0 {
		return ix
	}

	docFreq := make(map[string]int)
	total := 0
	for i, doc := range docs {
		tf := make(map[string]int, len(doc))
		for _, token := range doc {
			tf[token]++
		}
		for token := range tf {
			docFreq[token]++
		}
		ix.termFreqs[i] = tf
		ix.docLen[i] = len(doc)
		total += len(doc)
	}
	ix.avgDocLen = float64(total) / float64(len(docs))

	// Terms present in more than half the corpus get a negative raw IDF; they are
	// floored to epsilon * mean IDF. Summing in term order keeps the floor
	// bit-identical across builds of the same corpus.
	n := float64(len(docs))
	idfSum := 0.0
	var negative []string
	for _, token := range slices.Sorted(maps.Keys(docFreq)) {
		freq := docFreq[token]
		idf := math.Log(n-float64(freq)+0.5) - math.Log(float64(freq)+0.5)
		ix.idf[token] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, token)
		}
	}
	if len(ix.idf) > 0 {
		floor := params.Epsilon * (idfSum / float64(len(ix.idf)))
		for _, token := range negative {
			ix.idf[token] = floor
		}
	}
	return ix
}

func (ix *Index) Len() int {
	return len(ix.docLen)
}

// Scores returns one BM25 score per document, in document order. Repeated query
// tokens contribute repeatedly.
func (ix *Index) Scores(query []string) []float64 {
	scores := make([]float64, len(ix.docLen))
	if len(scores) == 0 || ix.avgDocLen == 0 {
		return scores
	}

	k1, b := ix.params.K1, ix.params.B
	for _, token := range query {
		idf, ok := ix.idf[token]
		if !ok {
			continue
		}
		for i, tf := range ix.termFreqs {
			freq := float64(tf[token])
			if freq == 0 {
				continue
			}
			norm := k1 * (1 - b + b*float64(ix.docLen[i])/ix.avgDocLen)
			scores[i] += idf * (freq * (k1 + 1)) / (freq + norm)
		}
	}
	return scores
}

// ScoresText tokenizes query with Tokenize before scoring.
func (ix *Index) ScoresText(query string) []float64 {
	return ix.Scores(Tokenize(query))
}
