// Package main implements the keep CLI, a scriptable harness over
// internal/engine: every subcommand is a direct flag-to-Engine-call
// mapping, one file per command.
//
// # File Index
//
//   - main.go          - entry point, rootCmd, global flags, openEngine()
//   - cmd_put.go        - putCmd, nowCmd
//   - cmd_get.go        - getCmd, contextCmd
//   - cmd_find.go       - findCmd
//   - cmd_tag.go        - tagCmd
//   - cmd_delete.go     - deleteCmd
//   - cmd_analyze.go    - analyzeCmd
//   - cmd_move.go       - moveCmd
//   - cmd_list.go       - listCmd, collectionsCmd
//   - cmd_pending.go    - processPendingCmd
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hughpyle/keep/internal/engine"
)

var (
	// Global flags
	verbose    bool
	storeDir   string
	collection string
	timeout    time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd is keep's base command.
var rootCmd = &cobra.Command{
	Use:   "keep",
	Short: "keep - reflective associative memory store",
	Long: `keep is a reflective associative memory system: a dual-store
(relational + vector) record of things worth remembering, with
decay-weighted recall and a deferred-work queue for embedding and
summarization.

This CLI exercises every engine operation directly; it is a harness for
the library, not a protocol adapter.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&storeDir, "store", "s", defaultStoreDir(), "Store directory")
	rootCmd.PersistentFlags().StringVarP(&collection, "collection", "c", "", "Collection (default: the store's configured default)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	rootCmd.AddCommand(
		putCmd,
		nowCmd,
		getCmd,
		contextCmd,
		findCmd,
		tagCmd,
		deleteCmd,
		analyzeCmd,
		moveCmd,
		listCmd,
		collectionsCmd,
		processPendingCmd,
	)
}

// defaultStoreDir resolves the store directory when --store is omitted:
// $KEEP_STORE if set, else ~/.keep.
func defaultStoreDir() string {
	if d := os.Getenv("KEEP_STORE"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".keep"
	}
	return home + "/.keep"
}

// openEngine opens the Engine over the resolved store directory, creating
// it (and its keep.toml) on first use.
func openEngine(ctx context.Context) (*engine.Engine, error) {
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory %s: %w", storeDir, err)
	}
	return engine.Open(ctx, storeDir)
}

// cmdContext returns a context bounded by --timeout, for subcommand RunE
// functions to use instead of a bare context.Background().
func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
