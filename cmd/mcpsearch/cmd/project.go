package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/localmcp/codesearch/internal/project"
)

// withProject opens the project rooted at --root, runs fn, and closes
// it regardless of fn's outcome.
func withProject(cmd *cobra.Command, fn func(ctx context.Context, p *project.Project) error) error {
	p, err := project.Open(rootFlag, newLogger())
	if err != nil {
		return err
	}
	defer func() {
		_ = p.Close(cmd.Context())
	}()
	return fn(cmd.Context(), p)
}
