package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/localmcp/codesearch/internal/cliui"
	"github.com/localmcp/codesearch/internal/project"
)

func newStatusCmd() *cobra.Command {
	var asJSON bool
	c := &cobra.Command{
		Use:   "status",
		Short: "Report this project's current index state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withProject(cmd, func(ctx context.Context, p *project.Project) error {
				report, err := p.GetIndexStatus(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return cliui.RenderStatusJSON(cmd.OutOrStdout(), report)
				}
				return cliui.RenderStatus(cmd.OutOrStdout(), report, cliui.DetectNoColor())
			})
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "emit the status report as JSON")
	return c
}
