package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHasVertexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "has-vertex",
		Short: "report whether a vertex exists",
		RunE:  runHasVertex,
	}

	cmd.Flags().String("label", "", "vertex label (required)")
	cmd.Flags().String("id", "", "vertex user id (required)")
	cmd.MarkFlagRequired("label")
	cmd.MarkFlagRequired("id")

	return cmd
}

func runHasVertex(cmd *cobra.Command, args []string) error {
	db, err := openDatabase(cmd)
	if err != nil {
		return err
	}

	label, _ := cmd.Flags().GetString("label")
	id, _ := cmd.Flags().GetString("id")
	exists := db.HasVertex(label, id)
	if existErr := closeDatabase(db, nil); existErr != nil {
		return existErr
	}
	if !exists {
		fmt.Fprintln(cmd.OutOrStdout(), "false")
		return fmt.Errorf("vertex %s:%s not found", label, id)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "true")
	return nil
}
