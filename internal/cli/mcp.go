package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func newMCPCommand(load serviceLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the knowledge base as MCP tools over stdio",
		Long: "Start a Model Context Protocol server on stdin/stdout exposing " +
			"ask_knowledge_base, search_passages and knowledge_base_status.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := load(cmd)
			if err != nil {
				return err
			}
			if s.ServeMCP == nil {
				return errors.New("mcp server not configured")
			}
			if _, err := s.Knowledge.Reload(cmd.Context()); err != nil {
				cmd.PrintErrf("knowledge base not loaded: %v\n", err)
			}
			return s.ServeMCP(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
