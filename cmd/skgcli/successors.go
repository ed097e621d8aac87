package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSuccessorsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "successors",
		Short: "list the destinations of a vertex's out-edges",
		RunE:  runSuccessors,
	}

	cmd.Flags().String("label", "", "vertex label (required)")
	cmd.Flags().String("id", "", "vertex user id (required)")
	cmd.Flags().Int("nlimit", 0, "max results (0 = unbounded)")
	cmd.MarkFlagRequired("label")
	cmd.MarkFlagRequired("id")

	return cmd
}

func runSuccessors(cmd *cobra.Command, args []string) error {
	db, err := openDatabase(cmd)
	if err != nil {
		return err
	}

	label, _ := cmd.Flags().GetString("label")
	id, _ := cmd.Flags().GetString("id")
	nlimit, _ := cmd.Flags().GetInt("nlimit")

	users, st := db.OutVertices(label, id, nlimit)
	if st != nil {
		closeDatabase(db, nil)
		return fmt.Errorf("%s", st.Error())
	}
	for _, u := range users {
		fmt.Fprintln(cmd.OutOrStdout(), u)
	}
	return closeDatabase(db, nil)
}
