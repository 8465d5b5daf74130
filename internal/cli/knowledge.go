package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

func newBuildCommand(load serviceLoader, out printerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Rebuild the knowledge base from the corpus directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := load(cmd)
			if err != nil {
				return err
			}
			st, err := s.Knowledge.Rebuild(cmd.Context(), domain.BuildTriggerCLI)
			if err != nil {
				return fmt.Errorf("build knowledge base: %w", err)
			}
			return out(cmd).status(st)
		},
	}
}

func newStatusCommand(load serviceLoader, out printerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the persisted knowledge base state",
		Long: "Load the persisted knowledge base and print its state. " +
			"A missing blob is built from the corpus first, as the API does at startup.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := load(cmd)
			if err != nil {
				return err
			}
			st, err := s.Knowledge.Reload(cmd.Context())
			if err != nil && !domain.IsKind(err, domain.ErrEmptyCorpus) {
				return fmt.Errorf("load knowledge base: %w", err)
			}
			if err != nil {
				st = s.Knowledge.Status(cmd.Context())
			}
			return out(cmd).status(st)
		},
	}
}

func newHistoryCommand(load serviceLoader, out printerFactory) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent builds from the build ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 {
				return errors.New("--limit must be positive")
			}
			s, err := load(cmd)
			if err != nil {
				return err
			}
			records, err := s.History.ListBuilds(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list builds: %w", err)
			}
			return out(cmd).builds(records)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum number of builds to show")
	return cmd
}
