package chunking

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize = 700
	DefaultOverlap   = 150
	DefaultMinChars  = 60
)

var sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)

// Splitter packs sentences into overlapping passage windows. Lengths are measured
// in runes. A sentence is never split, so one longer than ChunkSize becomes its own
// chunk.
type Splitter struct {
	ChunkSize int
	Overlap   int
	MinChars  int
}

func NewSplitter(chunkSize, overlap, minChars int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	if minChars < 0 {
		minChars = 0
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
		MinChars:  minChars,
	}
}

func (s *Splitter) Normalize(text string) string {
	return Normalize(text)
}

func (s *Splitter) Split(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var (
		chunks  []string
		current []string
		curLen  int
	)
	for _, sentence := range sentences {
		sentLen := utf8.RuneCountInString(sentence)
		if curLen+sentLen <= s.ChunkSize {
			current = append(current, sentence)
			curLen += sentLen + 1
			continue
		}

		if len(current) > 0 {
			chunks = append(chunks, strings.TrimSpace(strings.Join(current, " ")))
		}
		if s.Overlap > 0 && len(chunks) > 0 {
			tail := lastRunes(chunks[len(chunks)-1], s.Overlap)
			current = []string{tail + " " + sentence}
			curLen = utf8.RuneCountInString(tail) + 1 + sentLen
		} else {
			current = []string{sentence}
			curLen = sentLen
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.TrimSpace(strings.Join(current, " ")))
	}

	out := chunks[:0]
	for _, chunk := range chunks {
		if utf8.RuneCountInString(chunk) > s.MinChars {
			out = append(out, chunk)
		}
	}
	return out
}

// splitSentences breaks text into paragraphs on blank lines and each paragraph into
// sentences at terminal punctuation followed by whitespace.
func splitSentences(text string) []string {
	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		start := 0
		for _, loc := range sentenceBoundary.FindAllStringIndex(para, -1) {
			// the punctuation mark is a single byte and stays with its sentence
			if sentence := para[start : loc[0]+1]; strings.TrimSpace(sentence) != "" {
				out = append(out, sentence)
			}
			start = loc[1]
		}
		if sentence := para[start:]; strings.TrimSpace(sentence) != "" {
			out = append(out, sentence)
		}
	}
	return out
}

func lastRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := utf8.RuneCountInString(s)
	if count <= n {
		return s
	}
	skip := count - n
	for i := range s {
		if skip == 0 {
			return s[i:]
		}
		skip--
	}
	return ""
}
