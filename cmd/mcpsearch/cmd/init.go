package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/localmcp/codesearch/configs"
	"github.com/localmcp/codesearch/internal/atomicfile"
	"github.com/localmcp/codesearch/internal/config"
)

func newInitCmd() *cobra.Command {
	var user bool
	var force bool
	c := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Writes a commented configuration template: .mcpsearch.yaml in the
project root by default, or the machine-wide config at
~/.mcp/search/config.yaml with --user.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.ProjectConfigPath(rootFlag)
			template := configs.ProjectConfigTemplate
			if user {
				path = config.UserConfigPath()
				template = configs.UserConfigTemplate
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if user && force {
				backup, err := config.BackupUserConfig()
				if err != nil {
					return err
				}
				if backup != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "backed up existing config to %s\n", backup)
				}
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := atomicfile.Write(path, []byte(template), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	c.Flags().BoolVar(&user, "user", false, "write the machine-wide config instead of the project config")
	c.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return c
}
