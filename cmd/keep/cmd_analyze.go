package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var analyzeForce bool

// analyzeCmd decomposes an item's content into parts (or returns the
// existing ones, unless --force recomputes them).
var analyzeCmd = &cobra.Command{
	Use:   "analyze <id>",
	Short: "Decompose an item into parts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()
		e, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		parts, err := e.Analyze(ctx, collection, args[0], analyzeForce)
		if err != nil {
			return fmt.Errorf("analyze: %w", err)
		}
		for _, p := range parts {
			fmt.Printf("@p%d\t%s\n", p.PartNum, p.Summary)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeForce, "force", false, "Recompute parts even if they already exist")
}
