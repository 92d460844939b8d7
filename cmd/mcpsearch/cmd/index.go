package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localmcp/codesearch/internal/indexmanager"
	"github.com/localmcp/codesearch/internal/project"
)

func newCreateIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-index",
		Short: "Build a full index for this project",
		Long:  "Builds a full semantic index of code and documentation. Fails if an index already exists; use 'reindex' to rebuild one.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withProject(cmd, func(ctx context.Context, p *project.Project) error {
				return p.CreateIndex(ctx, progressPrinter(cmd))
			})
		},
	}
}

func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the full index from scratch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withProject(cmd, func(ctx context.Context, p *project.Project) error {
				return p.ReindexProject(ctx, progressPrinter(cmd))
			})
		},
	}
}

func newReindexFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex-file <path>",
		Short: "Reindex a single project-relative file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd, func(ctx context.Context, p *project.Project) error {
				return p.ReindexFile(ctx, args[0])
			})
		},
	}
}

func newDeleteIndexCmd() *cobra.Command {
	var force bool
	c := &cobra.Command{
		Use:   "delete-index",
		Short: "Delete all indexed data for this project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				return fmt.Errorf("refusing to delete the index without --force")
			}
			return withProject(cmd, func(ctx context.Context, p *project.Project) error {
				return p.DeleteIndex(ctx)
			})
		},
	}
	c.Flags().BoolVar(&force, "force", false, "confirm deletion")
	return c
}

// progressPrinter writes one line per progress event to the command's
// stderr.
func progressPrinter(cmd *cobra.Command) indexmanager.ProgressFunc {
	return func(ev indexmanager.ProgressEvent) {
		fmt.Fprintf(cmd.ErrOrStderr(), "scanned=%d indexed=%d chunks=%d %s\n",
			ev.FilesScanned, ev.FilesIndexed, ev.ChunksIndexed, ev.CurrentFile)
	}
}
