package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var getWithContent bool

// getCmd fetches a single item by id.
var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch an item by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()
		e, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if getWithContent {
			item, content, err := e.GetContent(collection, args[0])
			if err != nil {
				return fmt.Errorf("get: %w", err)
			}
			printItem(item)
			fmt.Println("---")
			fmt.Println(content)
			return nil
		}

		item, err := e.Get(collection, args[0])
		if err != nil {
			return fmt.Errorf("get: %w", err)
		}
		printItem(item)
		return nil
	},
}

// contextCmd assembles an item's full navigational context: siblings,
// parts, a version window, and edges.
var contextCmd = &cobra.Command{
	Use:   "context <id>",
	Short: "Show an item with its siblings, parts, versions, and edges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()
		e, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		itemCtx, err := e.GetContext(ctx, collection, args[0])
		if err != nil {
			return fmt.Errorf("get context: %w", err)
		}

		printItem(itemCtx.Item)

		if len(itemCtx.Siblings) > 0 {
			fmt.Println("siblings:")
			for _, s := range itemCtx.Siblings {
				fmt.Printf("  %s\t%.4f\t%s\n", s.Item.ID, s.Score, s.Item.Summary)
			}
		}

		if len(itemCtx.Parts) > 0 {
			fmt.Println("parts:")
			for _, p := range itemCtx.Parts {
				fmt.Printf("  @p%d\t%s\n", p.PartNum, p.Summary)
			}
		}

		fmt.Printf("version: %d (before=%d, after=%d)\n",
			itemCtx.Versions.Current, len(itemCtx.Versions.Before), len(itemCtx.Versions.After))

		for _, edge := range itemCtx.Edges {
			fmt.Printf("edge: -%s-> %s\n", edge.Predicate, edge.TargetID)
		}
		for _, edge := range itemCtx.Inverse {
			fmt.Printf("edge: <-%s- %s\n", edge.Predicate, edge.SourceID)
		}
		return nil
	},
}

func init() {
	getCmd.Flags().BoolVar(&getWithContent, "content", false, "Also print the raw content body")
}
