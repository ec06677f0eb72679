package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sprintai/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the scoring tools over MCP stdio",
		Long: `Serve rank_options and score_option as MCP tools on stdin/stdout.
Logs go to stderr because stdout carries the protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := stderrLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			cfg := mcp.DefaultConfig()
			cfg.Version = version
			cfg.Logger = logger
			return mcp.NewServer(cfg).Run(cmd.Context())
		},
	}
}

func stderrLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
