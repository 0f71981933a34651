package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// tagCmd merges key=value tag updates onto an item without touching its
// content or summary. An empty value ("key=") deletes that key.
var tagCmd = &cobra.Command{
	Use:   "tag <id> key=value [key=value...]",
	Short: "Merge tag updates onto an item",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		updates, err := parseTagArgs(args[1:])
		if err != nil {
			return err
		}

		ctx, cancel := cmdContext()
		defer cancel()
		e, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		item, err := e.Tag(collection, args[0], updates)
		if err != nil {
			return fmt.Errorf("tag: %w", err)
		}
		printItem(item)
		return nil
	},
}
