// Package cmd wires the codescope CLI.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"codescope/pkg/config"
	"codescope/pkg/engine"
)

const version = "0.3.0"

var (
	flagRoot    string
	flagCeiling int
	flagModel   string
)

var rootCmd = &cobra.Command{
	Use:     "codescope",
	Version: version,
	Short:   "Ask questions about codebases too large for one LLM context window",
	Long: `codescope answers natural-language questions about a source tree of any
size. It estimates token costs, partitions files into token-bounded
groups, analyzes every group concurrently against the model (rotating
through the configured API keys on rate limits) and merges the partial
answers into one report.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagRoot, "root", "r", ".", "workspace root to analyze")
	rootCmd.PersistentFlags().IntVarP(&flagCeiling, "ceiling", "c", 0, "token ceiling per group (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "model to use (overrides config)")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(serveCmd)
}

// buildEngine loads configuration, applies flag overrides and installs
// the workspace from --root.
func buildEngine() (*engine.Engine, error) {
	cfg, err := config.Load(flagRoot)
	if err != nil {
		return nil, err
	}
	if flagCeiling != 0 {
		if err := config.ValidateCeiling(flagCeiling); err != nil {
			return nil, err
		}
		cfg.TokenCeiling = flagCeiling
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}

	eng := engine.New(cfg)
	if _, err := eng.SetWorkspace(flagRoot); err != nil {
		return nil, fmt.Errorf("setting workspace: %w", err)
	}
	return eng, nil
}
