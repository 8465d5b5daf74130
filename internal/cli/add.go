package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

func newAddCommand(load serviceLoader, out printerFactory) *cobra.Command {
	var rebuild bool
	cmd := &cobra.Command{
		Use:   "add [file...]",
		Short: "Copy documents into the corpus and rebuild",
		Long: "Copy documents into the corpus directory. With a queue configured the " +
			"rebuild is handed to the worker; otherwise it runs in this process.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := load(cmd)
			if err != nil {
				return err
			}
			p := out(cmd)
			for _, path := range args {
				doc, err := addFile(cmd, s, path)
				if err != nil {
					return err
				}
				if err := p.uploaded(doc); err != nil {
					return err
				}
			}
			if !rebuild {
				return nil
			}
			if s.Rebuilds != nil {
				if err := s.Rebuilds.PublishRebuildRequested(cmd.Context(), domain.BuildTriggerCLI); err != nil {
					return fmt.Errorf("request rebuild: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Rebuild requested.")
				return nil
			}
			st, err := s.Knowledge.Rebuild(cmd.Context(), domain.BuildTriggerCLI)
			if err != nil {
				return fmt.Errorf("build knowledge base: %w", err)
			}
			return p.status(st)
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild", true, "rebuild the knowledge base after adding")
	return cmd
}

func addFile(cmd *cobra.Command, s *Services, path string) (*domain.UploadedDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := s.Ingestor.Upload(cmd.Context(), filepath.Base(path), f)
	if err != nil {
		return nil, fmt.Errorf("add %s: %w", path, err)
	}
	return doc, nil
}
