package cmd

import (
	"github.com/spf13/cobra"

	"github.com/localmcp/codesearch/internal/logging"
	"github.com/localmcp/codesearch/internal/project"
	"github.com/localmcp/codesearch/internal/toolserver"
	"github.com/localmcp/codesearch/pkg/version"
)

func newServeCmd() *cobra.Command {
	var logFile string
	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP tool surface over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logCfg := logging.DefaultConfig()
			logCfg.WriteToStderr = debugFlag
			if logFile != "" {
				logCfg.FilePath = logFile
			}
			if debugFlag {
				logCfg.Level = "debug"
			}
			logger, cleanup, err := logging.Setup(logCfg)
			if err != nil {
				return err
			}
			defer cleanup()

			p, err := project.Open(rootFlag, logger)
			if err != nil {
				return err
			}
			defer func() {
				_ = p.Close(cmd.Context())
			}()

			srv := toolserver.New(toolserver.Config{
				Project: p,
				Logger:  logger,
				Name:    "mcpsearch",
				Version: version.Version,
			})
			return srv.Serve(cmd.Context())
		},
	}
	c.Flags().StringVar(&logFile, "log-file", "", "log file path (default ~/.mcp/search/logs/server.log)")
	return c
}
