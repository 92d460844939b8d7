package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localmcp/codesearch/internal/project"
	"github.com/localmcp/codesearch/internal/vectorstore"
)

func newSearchCodeCmd() *cobra.Command {
	var limit int
	c := &cobra.Command{
		Use:   "search-code <query>",
		Short: "Semantic search over indexed source code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd, func(ctx context.Context, p *project.Project) error {
				results, err := p.SearchCode(ctx, args[0], limit)
				if err != nil {
					return err
				}
				printSearchResults(cmd, results)
				return nil
			})
		},
	}
	c.Flags().IntVar(&limit, "limit", 10, "maximum number of results (1-50)")
	return c
}

func newSearchDocsCmd() *cobra.Command {
	var limit int
	c := &cobra.Command{
		Use:   "search-docs <query>",
		Short: "Semantic search over indexed documentation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd, func(ctx context.Context, p *project.Project) error {
				results, err := p.SearchDocs(ctx, args[0], limit)
				if err != nil {
					return err
				}
				printSearchResults(cmd, results)
				return nil
			})
		},
	}
	c.Flags().IntVar(&limit, "limit", 10, "maximum number of results (1-50)")
	return c
}

func newSearchPathCmd() *cobra.Command {
	var limit int
	var table string
	c := &cobra.Command{
		Use:   "search-path <pattern>",
		Short: "List indexed files matching a glob pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd, func(ctx context.Context, p *project.Project) error {
				paths, err := p.SearchByPath(ctx, project.Table(table), args[0], limit)
				if err != nil {
					return err
				}
				for _, path := range paths {
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
				return nil
			})
		},
	}
	c.Flags().IntVar(&limit, "limit", 10, "maximum number of paths (1-100)")
	c.Flags().StringVar(&table, "table", "code", "which table to search: 'code' or 'docs'")
	return c
}

func printSearchResults(cmd *cobra.Command, results []vectorstore.SearchResult) {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "no matches")
		return
	}
	for _, r := range results {
		fmt.Fprintf(out, "%.3f  %s:%d-%d\n", r.Score, r.Path, r.StartLine, r.EndLine)
	}
}
