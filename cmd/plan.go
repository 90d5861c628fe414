package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Scan the workspace and create token-bounded file groups",
	Long: `Scans the workspace, estimates each file's token cost and partitions
the manifest into groups under the token ceiling. With API keys
configured the model proposes the grouping; otherwise (or when the
proposal cannot be trusted) a deterministic packer is used. The plan is
saved under .codescope/plan.json for the analyze step.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}

		plan, err := eng.CreateGroups(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Plan %s: %d files (~%d tokens) in %d groups, ceiling %d\n\n",
			plan.ID, plan.TotalFiles, plan.TotalTokens, len(plan.Groups), plan.Ceiling)
		for i, g := range plan.Groups {
			fmt.Printf("  %2d. %s: %d files, ~%d tokens\n", i+1, g.Name, len(g.Files), g.Tokens)
			if g.Description != "" {
				fmt.Printf("      %s\n", g.Description)
			}
		}
		fmt.Println("\nRun `codescope analyze \"<question>\"` to analyze the groups.")
		return nil
	},
}
