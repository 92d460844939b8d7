package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/localmcp/codesearch/internal/project"
)

func newDoctorCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "doctor",
		Short: "Check the index for drift against the working tree without repairing it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withProject(cmd, func(ctx context.Context, p *project.Project) error {
				code, docs, err := p.CheckIntegrity(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printDrift(out, "code", code.Added, code.Modified, code.Removed, code.RecommendRebuild)
				printDrift(out, "docs", docs.Added, docs.Modified, docs.Removed, docs.RecommendRebuild)
				if code.RecommendRebuild || docs.RecommendRebuild {
					return fmt.Errorf("drift exceeds the safe-reconcile threshold; run reindex-project to rebuild")
				}
				return nil
			})
		},
	}
	return c
}

func printDrift(w io.Writer, table string, added, modified, removed []string, recommendRebuild bool) {
	fmt.Fprintf(w, "%s: %d added, %d modified, %d removed\n", table, len(added), len(modified), len(removed))
	if recommendRebuild {
		fmt.Fprintf(w, "%s: drift is large enough that a full rebuild is recommended\n", table)
	}
}
