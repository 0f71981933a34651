package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hughpyle/keep/internal/engine"
)

var (
	listPrefix string
	listTags   []string
	listSince  string
	listUntil  string
	listLimit  int
)

// listCmd scans a collection with optional id-prefix, tag, and time-window
// filters.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List items in a collection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, err := parseTagFilterArgs(listTags)
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

		items, err := e.ListItems(engine.ListOptions{
			Collection: collection,
			IDPrefix:   listPrefix,
			Tags:       tags,
			Since:      listSince,
			Until:      listUntil,
			Limit:      listLimit,
		})
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}
		for _, item := range items {
			fmt.Printf("%s\t%s\t%s\n", item.ID, item.ContentHash, item.Summary)
		}
		return nil
	},
}

// collectionsCmd lists every collection that has at least one item.
var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List collections and their item counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()
		e, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		infos, err := e.Collections()
		if err != nil {
			return fmt.Errorf("collections: %w", err)
		}
		for _, info := range infos {
			fmt.Printf("%s\t%d\n", info.Name, info.Count)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listPrefix, "prefix", "", `Id prefix filter, may end in "*"`)
	listCmd.Flags().StringArrayVar(&listTags, "tag", nil, "Filter by tag as key=value (repeatable)")
	listCmd.Flags().StringVar(&listSince, "since", "", "Only items updated at or after this time (ISO-8601 duration or date)")
	listCmd.Flags().StringVar(&listUntil, "until", "", "Only items updated at or before this time")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum results (0 = unlimited)")
}
