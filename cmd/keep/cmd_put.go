package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hughpyle/keep/internal/engine"
	"github.com/hughpyle/keep/internal/model"
)

var (
	putID       string
	putSummary  string
	putTags     []string
	putFetchURI bool
)

// putCmd stores content under an id, auto-deriving one from a content
// hash when --id is omitted. Content is read from the positional argument,
// or from stdin when none is given.
var putCmd = &cobra.Command{
	Use:   "put [content]",
	Short: "Store content, archiving a prior version if it changed",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := resolveContent(args)
		if err != nil {
			return err
		}
		tags, err := parseTagArgs(putTags)
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

		item, err := e.Put(ctx, content, engine.PutOptions{
			ID:         putID,
			Collection: collection,
			Summary:    putSummary,
			Tags:       tags,
			FetchURI:   putFetchURI,
		})
		if err != nil {
			return fmt.Errorf("put: %w", err)
		}
		logger.Info("put", zap.String("id", item.ID), zap.String("collection", item.Collection))
		printItem(item)
		return nil
	},
}

// nowCmd is a shorthand for `put --id now`, the item keep treats as the
// current working context.
var nowCmd = &cobra.Command{
	Use:   "now [content]",
	Short: `Shorthand for "put --id now"`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := resolveContent(args)
		if err != nil {
			return err
		}
		tags, err := parseTagArgs(putTags)
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

		item, err := e.SetNow(ctx, content, tags)
		if err != nil {
			return fmt.Errorf("set now: %w", err)
		}
		printItem(item)
		return nil
	},
}

func init() {
	putCmd.Flags().StringVar(&putID, "id", "", "Item id (default: derived from content hash)")
	putCmd.Flags().StringVar(&putSummary, "summary", "", "Summary (default: auto-summarized)")
	putCmd.Flags().StringArrayVar(&putTags, "tag", nil, "Tag as key=value (repeatable)")
	putCmd.Flags().BoolVar(&putFetchURI, "fetch-uri", false, "Treat content as a URI to resolve via the document provider")

	nowCmd.Flags().StringArrayVar(&putTags, "tag", nil, "Tag as key=value (repeatable)")
}

// resolveContent returns the positional content argument, or reads stdin
// when no argument was given.
func resolveContent(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// parseTagArgs parses "key=value" pairs; "key=" (empty value) is kept as
// an empty value, which Tag treats as a deletion marker.
func parseTagArgs(pairs []string) (model.Tags, error) {
	tags := model.NewTags(nil)
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return model.Tags{}, fmt.Errorf("invalid tag %q, expected key=value", p)
		}
		tags.Set(k, v)
	}
	return tags, nil
}

func printItem(item model.Item) {
	fmt.Printf("%s\t%s\t%s\n", item.ID, item.ContentHash, item.Summary)
	for _, k := range item.Tags.Keys() {
		v, _ := item.Tags.Get(k)
		fmt.Printf("  %s=%s\n", k, v)
	}
}
