// Package cli implements the portfolio command line.
package cli

import (
	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. Running the root command with no
// subcommand starts the server.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "portfolio",
		Short: "Portfolio backend",
		Long: `portfolio serves the project catalog, the contact form relay, image uploads
and the admin API of the portfolio site.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "optional YAML config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newProjectsCmd(&configPath))
	root.AddCommand(newHashPasswordCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
