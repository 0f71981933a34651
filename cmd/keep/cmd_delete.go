package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// deleteCmd removes an item and every trace of it.
var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an item, cascading its versions, parts, and edges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()
		e, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		existed, err := e.Delete(collection, args[0])
		if err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		if !existed {
			fmt.Printf("%s: not found\n", args[0])
			return nil
		}
		fmt.Printf("%s: deleted\n", args[0])
		return nil
	},
}
