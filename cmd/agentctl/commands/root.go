package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "agentctl",
	Short: "Operate actorrt runtimes from the command line",
	Long: `agentctl boots an actorrt Runtime over a chosen transport and drives it.

It is operational tooling for exercising the library's own wiring, not
an application built on top of it.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
}
