package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/prd/internal/agents"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the specialist reviewer panel",
	RunE: func(cmd *cobra.Command, args []string) error {
		defs := agents.Catalog()
		if err := ui.RenderAgents(defs); err != nil {
			return err
		}
		if verbose {
			fmt.Fprintln(ui.Out)
			for _, d := range defs {
				ui.Info("%s: %s", d.DisplayName, d.Bio)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(agentsCmd)
}
