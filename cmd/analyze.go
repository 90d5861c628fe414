package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <question>",
	Short: "Analyze the planned groups against a question",
	Long: `Loads the plan created by 'codescope plan', re-reads the planned files
from disk (files that vanished since planning are skipped with a
warning) and analyzes every group concurrently. Each group's call
retries through the configured API keys; one group failing does not
stop the others. Prints the merged report.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}

		report, err := eng.AnalyzeGroups(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(report)
		return nil
	},
}
