package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAddEdgeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-edge",
		Short: "add (or update) an edge between two vertices",
		RunE:  runAddEdge,
	}

	cmd.Flags().String("edge-label", "", "edge label (required)")
	cmd.Flags().String("src-label", "", "source vertex label (required)")
	cmd.Flags().String("src", "", "source vertex id (required)")
	cmd.Flags().String("dst-label", "", "destination vertex label (required)")
	cmd.Flags().String("dst", "", "destination vertex id (required)")
	cmd.Flags().Float32("weight", 0, "edge weight")
	cmd.MarkFlagRequired("edge-label")
	cmd.MarkFlagRequired("src-label")
	cmd.MarkFlagRequired("src")
	cmd.MarkFlagRequired("dst-label")
	cmd.MarkFlagRequired("dst")

	return cmd
}

func runAddEdge(cmd *cobra.Command, args []string) error {
	db, err := openDatabase(cmd)
	if err != nil {
		return err
	}

	edgeLabel, _ := cmd.Flags().GetString("edge-label")
	srcLabel, _ := cmd.Flags().GetString("src-label")
	src, _ := cmd.Flags().GetString("src")
	dstLabel, _ := cmd.Flags().GetString("dst-label")
	dst, _ := cmd.Flags().GetString("dst")
	weight, _ := cmd.Flags().GetFloat32("weight")

	if st := db.AddEdge(edgeLabel, srcLabel, src, dstLabel, dst, weight, nil, 0); st != nil {
		closeDatabase(db, nil)
		return fmt.Errorf("%s", st.Error())
	}
	return closeDatabase(db, nil)
}
