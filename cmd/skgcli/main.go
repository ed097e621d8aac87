// Command skgcli is the test-driver CLI for the skg graph engine, per spec
// §6: a minimal driver exercising add_edge, has_vertex, has_edge_between,
// predecessors, and successors, exiting 0 on success and nonzero on any
// returned error status.
//
// Grounded on fenilsonani-vcs's cmd/vcs main.go (a bare cobra.Command root
// wiring one newXCommand() per verb, Execute()'s error driving os.Exit(1)).
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "skgcli",
		Short: "test driver for the skg property-graph storage engine",
	}

	rootCmd.PersistentFlags().String("root", "", "database root directory (defaults to $SKG_ROOT)")

	rootCmd.AddCommand(
		newAddEdgeCommand(),
		newHasVertexCommand(),
		newHasEdgeBetweenCommand(),
		newPredecessorsCommand(),
		newSuccessorsCommand(),
	)

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
