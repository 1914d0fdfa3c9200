package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/prd/internal/mcp"
)

var mcpMock bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for assistant integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets assistants start PRD reviews and poll their results
natively. Configure with:

  {
    "mcpServers": {
      "prd": { "command": "prd", "args": ["mcp"] }
    }
  }

Available tools: prd_start_review, prd_get_review, prd_list_reviews,
prd_update_issue_status, prd_list_agents`,
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, s, err := getOrchestrator(mcpMock)
		if err != nil {
			return err
		}

		srv := mcp.NewServer(s, orch, viper.GetDuration("review.timeout"))
		return srv.ServeStdio(cmd.Context())
	},
}

func init() {
	mcpCmd.Flags().BoolVar(&mcpMock, "mock", false, "Use canned specialists instead of the LLM")
	rootCmd.AddCommand(mcpCmd)
}
