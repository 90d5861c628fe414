package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:     "ask <question>",
	Aliases: []string{"q"},
	Short:   "Ask a question about the workspace in one shot",
	Long: `Scans, groups and analyzes the workspace in a single invocation. Small
workspaces that fit under the token ceiling are answered with one model
call; larger ones are batched and the answer is a merged report.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}

		answer, err := eng.Ask(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	},
}
