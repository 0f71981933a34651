package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hughpyle/keep/internal/engine"
)

var (
	moveSource      string
	moveTags        []string
	moveOnlyCurrent bool
)

// moveCmd extracts matching states from a source item (default "now")
// into a target item, which is created if it doesn't exist.
var moveCmd = &cobra.Command{
	Use:   "move <name>",
	Short: "Extract matching states from a source item into a target item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, err := parseTagFilterArgs(moveTags)
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

		item, err := e.Move(ctx, args[0], engine.MoveOptions{
			Collection:  collection,
			SourceID:    moveSource,
			Tags:        tags,
			OnlyCurrent: moveOnlyCurrent,
		})
		if err != nil {
			return fmt.Errorf("move: %w", err)
		}
		printItem(item)
		return nil
	},
}

func init() {
	moveCmd.Flags().StringVar(&moveSource, "source", "now", "Source item id")
	moveCmd.Flags().StringArrayVar(&moveTags, "tag", nil, "Only extract states matching key=value (repeatable)")
	moveCmd.Flags().BoolVar(&moveOnlyCurrent, "only-current", false, "Extract only the source's current state, not its archived versions")
}
