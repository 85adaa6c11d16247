package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the parksync admin CLI. Subcommands (park,
// token, sweep, db) are attached here.
var rootCmd = &cobra.Command{
	Use:           "parksync",
	Short:         "Parksync admin CLI",
	Long:          "Administrative utilities for the booking sync service (park registry, OAuth seeding, manual sweeps).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
