package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"skg/config"
	"skg/skg"
)

// openDatabase resolves the --root flag (falling back to SKG_ROOT) and
// opens the database, per spec §6's "external interfaces" root-resolution
// rule.
func openDatabase(cmd *cobra.Command) (*skg.Database, error) {
	root, _ := cmd.Flags().GetString("root")
	if root == "" {
		root = config.RootFromEnv()
	}
	if root == "" {
		return nil, fmt.Errorf("no database root given: pass --root or set SKG_ROOT")
	}
	db, st := skg.Open(root, nil)
	if st != nil {
		return nil, fmt.Errorf("%s", st.Error())
	}
	return db, nil
}

// closeDatabase closes db, surfacing any flush error as a command error
// without masking an already-in-flight error.
func closeDatabase(db *skg.Database, existing error) error {
	if st := db.Close(); st != nil && existing == nil {
		return fmt.Errorf("%s", st.Error())
	}
	return existing
}
