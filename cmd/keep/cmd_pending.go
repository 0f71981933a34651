package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pendingLimit int

// processPendingCmd drains the deferred-work queue, running embed,
// summarize, and analyze tasks queued while in cloud mode.
var processPendingCmd = &cobra.Command{
	Use:   "process-pending",
	Short: "Process deferred embed/summarize/analyze tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()
		e, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		result, err := e.ProcessPending(ctx, pendingLimit)
		if err != nil {
			return fmt.Errorf("process pending: %w", err)
		}
		fmt.Printf("processed=%d failed=%d\n", result.Processed, result.Failed)
		return nil
	},
}

func init() {
	processPendingCmd.Flags().IntVar(&pendingLimit, "limit", 50, "Maximum tasks to process")
}
