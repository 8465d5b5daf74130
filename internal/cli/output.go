package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

type printer struct {
	w      io.Writer
	asJSON bool
}

func newPrinter(w io.Writer, asJSON bool) *printer {
	return &printer{w: w, asJSON: asJSON}
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

func (p *printer) writeJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(p.w, string(data))
	return err
}

func (p *printer) status(st domain.KnowledgeBaseStatus) error {
	if p.asJSON {
		return p.writeJSON(st)
	}
	label := yellow(st.Status)
	if st.Status == domain.KnowledgeBaseStatusReady {
		label = green(st.Status)
	}
	fmt.Fprintf(p.w, "Status:      %s\n", label)
	fmt.Fprintf(p.w, "Chunks:      %d\n", st.NumChunks)
	if st.EmbedModel != "" {
		fmt.Fprintf(p.w, "Embed model: %s\n", st.EmbedModel)
	}
	if st.BuiltAt != "" {
		fmt.Fprintf(p.w, "Built at:    %s\n", st.BuiltAt)
	}
	return nil
}

func (p *printer) passages(question string, passages []domain.ScoredCandidate) error {
	if p.asJSON {
		return p.writeJSON(map[string]any{"question": question, "results": passages})
	}
	if len(passages) == 0 {
		fmt.Fprintln(p.w, "No passages found.")
		return nil
	}
	for i, c := range passages {
		score := fmt.Sprintf("fused %.3f", c.FusedScore)
		if c.RerankScore != nil {
			score += fmt.Sprintf(", rerank %.3f", *c.RerankScore)
		}
		fmt.Fprintf(p.w, "%d. %s %s\n", i+1, cyan(fmt.Sprintf("[#%d]", c.ChunkID)), faint(score))
		fmt.Fprintf(p.w, "   %s\n", snippet(c.Text, 240))
	}
	return nil
}

func (p *printer) answer(a *domain.Answer) error {
	if p.asJSON {
		return p.writeJSON(a)
	}
	fmt.Fprintln(p.w, a.Text)
	if len(a.Sources) > 0 {
		ids := make([]string, len(a.Sources))
		for i, s := range a.Sources {
			ids[i] = fmt.Sprintf("#%d", s.ChunkID)
		}
		fmt.Fprintln(p.w, faint("sources: "+strings.Join(ids, ", ")))
	}
	return nil
}

func (p *printer) builds(records []domain.BuildRecord) error {
	if p.asJSON {
		return p.writeJSON(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(p.w, "No builds recorded.")
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(p.w, "%s  %-8s %6d chunks  %4d docs  %8s  %s\n",
			r.BuiltAt.Local().Format(domain.StatusTimeLayout),
			r.Trigger,
			r.ChunkCount,
			r.SourceDocuments,
			r.Duration.Round(10*time.Millisecond),
			faint(r.ID),
		)
	}
	return nil
}

func (p *printer) uploaded(doc *domain.UploadedDocument) error {
	if p.asJSON {
		return p.writeJSON(doc)
	}
	fmt.Fprintf(p.w, "%s %s (%d bytes)\n", green("added"), doc.Name, doc.Size)
	return nil
}

// snippet collapses whitespace and truncates on a rune boundary.
func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
