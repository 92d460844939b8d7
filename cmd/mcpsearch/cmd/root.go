// Package cmd provides the CLI commands for mcpsearch.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/localmcp/codesearch/pkg/version"
)

// rootFlag holds the --root flag shared by every subcommand that opens
// a project; it defaults to the current working directory.
var rootFlag string

// debugFlag enables verbose slog output to stderr.
var debugFlag bool

// NewRootCmd creates the root command for the mcpsearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mcpsearch",
		Short:   "Local-first semantic code and documentation search",
		Version: version.Version,
		Long: `mcpsearch indexes a project's source code and documentation into a
local, content-addressed vector store and serves semantic search over
it, either as an MCP tool surface for AI coding assistants or directly
from the command line.`,
	}
	cmd.SetVersionTemplate("mcpsearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&rootFlag, "root", ".", "project root directory")
	cmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging to stderr")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newCreateIndexCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newReindexFileCmd())
	cmd.AddCommand(newDeleteIndexCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newSearchCodeCmd())
	cmd.AddCommand(newSearchDocsCmd())
	cmd.AddCommand(newSearchPathCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// newLogger returns a slog.Logger writing to stderr, since stdout is
// reserved for MCP JSON-RPC traffic and for this CLI's own result output.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if debugFlag {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
