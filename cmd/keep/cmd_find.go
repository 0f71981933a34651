package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hughpyle/keep/internal/engine"
	"github.com/hughpyle/keep/internal/model"
)

var (
	findTags    []string
	findSince   string
	findUntil   string
	findLimit   int
	findSimilar string
)

// findCmd embeds a query and returns its decay-weighted nearest neighbors,
// or (with --similar-to) the neighbors of an already-stored item.
var findCmd = &cobra.Command{
	Use:   "find [query]",
	Short: "Find items by embedding similarity",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()
		e, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		tags, err := parseTagFilterArgs(findTags)
		if err != nil {
			return err
		}

		var hits []engine.SearchHit
		if findSimilar != "" {
			hits, err = e.FindSimilar(ctx, collection, findSimilar, findLimit, false)
		} else {
			if len(args) != 1 {
				return fmt.Errorf("find requires a query string unless --similar-to is set")
			}
			since, until, perr := parseTimeWindow(findSince, findUntil)
			if perr != nil {
				return perr
			}
			hits, err = e.Find(ctx, args[0], engine.FindOptions{
				Collection: collection,
				Tags:       tags,
				Since:      since,
				Until:      until,
				Limit:      findLimit,
			})
		}
		if err != nil {
			return fmt.Errorf("find: %w", err)
		}

		for _, h := range hits {
			fmt.Printf("%.4f\t%s\t%s\n", h.Score, h.Item.ID, h.Item.Summary)
		}
		return nil
	},
}

func init() {
	findCmd.Flags().StringArrayVar(&findTags, "tag", nil, "Filter by tag as key=value (repeatable); empty value means existence-only")
	findCmd.Flags().StringVar(&findSince, "since", "", "Only items updated at or after this time (ISO-8601 duration or date)")
	findCmd.Flags().StringVar(&findUntil, "until", "", "Only items updated at or before this time")
	findCmd.Flags().IntVar(&findLimit, "limit", 10, "Maximum results")
	findCmd.Flags().StringVar(&findSimilar, "similar-to", "", "Find neighbors of an already-stored item id instead of embedding a query")
}

// parseTagFilterArgs is parseTagArgs's cousin for read-side filters: a map,
// not a model.Tags, since Find/ListItems never write tags.
func parseTagFilterArgs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid tag %q, expected key=value", p)
		}
		out[k] = v
	}
	return out, nil
}

// parseTimeWindow parses the CLI's --since/--until flags via the same
// ISO-duration-or-date rules Find and ListItems use internally.
func parseTimeWindow(since, until string) (s, u time.Time, err error) {
	now := time.Now().UTC()
	if since != "" {
		s, err = model.ParseSinceUntil(since, now)
		if err != nil {
			return s, u, fmt.Errorf("parse since: %w", err)
		}
	}
	if until != "" {
		u, err = model.ParseSinceUntil(until, now)
		if err != nil {
			return s, u, fmt.Errorf("parse until: %w", err)
		}
	}
	return s, u, nil
}
