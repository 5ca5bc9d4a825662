package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsAddr string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Query a running instance's introspection endpoint",
	Long: `stats is a placeholder: a wire protocol for remote introspection of a
running agentctl serve instance is out of scope for this library (see
the spec's interfaces section). Embed the library and call
Runtime.Stats directly for in-process introspection instead.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsAddr, "addr", "", "address of a running agentctl serve instance")
}

func runStats(cmd *cobra.Command, args []string) error {
	return fmt.Errorf("agentctl: remote stats querying is not implemented; embed the library and call runtime.Runtime.Stats in-process instead")
}
