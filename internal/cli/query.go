package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCommand(load serviceLoader, out printerFactory) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "search [question]",
		Short: "Show the passages retrieval would ground an answer in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := load(cmd)
			if err != nil {
				return err
			}
			k := topK
			if k <= 0 {
				k = s.TopK
			}
			passages, err := s.Searcher.Search(cmd.Context(), args[0], k)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			return out(cmd).passages(args[0], passages)
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "n", 0, "number of passages (default RAG_TOP_K)")
	return cmd
}

func newAskCommand(load serviceLoader, out printerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question from the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := load(cmd)
			if err != nil {
				return err
			}
			answer, err := s.Answerer.Answer(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("answer: %w", err)
			}
			return out(cmd).answer(answer)
		},
	}
}
