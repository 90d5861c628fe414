package cmd

import (
	"github.com/spf13/cobra"

	"codescope/pkg/config"
	"codescope/pkg/engine"
	"codescope/pkg/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as an MCP server on stdin/stdout",
	Long: `Speaks the Model Context Protocol over stdin/stdout, exposing
set_workspace, create_groups, analyze_groups and ask as tools. The
workspace is chosen by the client via set_workspace, so --root is only
used to locate the configuration file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagRoot)
		if err != nil {
			return err
		}
		if flagModel != "" {
			cfg.Model = flagModel
		}

		srv := mcpserver.New(engine.New(cfg), version)
		return srv.Start(cmd.Context())
	},
}
