package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHasEdgeBetweenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "has-edge-between",
		Short: "report whether an edge exists between two vertices",
		RunE:  runHasEdgeBetween,
	}

	cmd.Flags().String("src-label", "", "source vertex label (required)")
	cmd.Flags().String("src", "", "source vertex id (required)")
	cmd.Flags().String("dst-label", "", "destination vertex label (required)")
	cmd.Flags().String("dst", "", "destination vertex id (required)")
	cmd.MarkFlagRequired("src-label")
	cmd.MarkFlagRequired("src")
	cmd.MarkFlagRequired("dst-label")
	cmd.MarkFlagRequired("dst")

	return cmd
}

func runHasEdgeBetween(cmd *cobra.Command, args []string) error {
	db, err := openDatabase(cmd)
	if err != nil {
		return err
	}

	srcLabel, _ := cmd.Flags().GetString("src-label")
	src, _ := cmd.Flags().GetString("src")
	dstLabel, _ := cmd.Flags().GetString("dst-label")
	dst, _ := cmd.Flags().GetString("dst")

	exists := db.HasEdgeBetween(srcLabel, src, dstLabel, dst)
	if existErr := closeDatabase(db, nil); existErr != nil {
		return existErr
	}
	if !exists {
		fmt.Fprintln(cmd.OutOrStdout(), "false")
		return fmt.Errorf("no edge between %s:%s and %s:%s", srcLabel, src, dstLabel, dst)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "true")
	return nil
}
