// Package cli implements the recapadmin command line: the HTTP server and
// catalog maintenance commands that work directly on the database.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/treefix50/recapadmin/internal/config"
)

// NewRootCommand builds the recapadmin command tree.
func NewRootCommand() *cobra.Command {
	var configFlag string
	var dbFlag string
	var logLevelFlag string

	ctx := newCommandContext(&configFlag, &dbFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:           "recapadmin",
		Short:         "RecapShow catalog administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFiles(".env"); err != nil {
				return err
			}
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "Database path (overrides the configuration)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newDeleteCommand(ctx))
	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newDiffCommand(ctx))
	rootCmd.AddCommand(newPreviewCommand())
	rootCmd.AddCommand(newUserCommand(ctx))
	rootCmd.AddCommand(newReportsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}
