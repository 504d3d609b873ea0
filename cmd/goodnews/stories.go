// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/goodnews-engine/internal/store"
	"github.com/pdiddy/goodnews-engine/pkg/types"
)

var storiesCmd = &cobra.Command{
	Use:   "stories",
	Short: "List or export stored stories",
	Long: `Stories lists stored stories, newest first, with optional category,
trending and age filters. Use --export to write the selection as YAML or
JSON export entries instead of a table.`,
	RunE: runStories,
}

func runStories(cmd *cobra.Command, args []string) error {
	opts, err := listOptsFromFlags(cmd)
	if err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")
	export, _ := cmd.Flags().GetString("export")

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	w := cmd.OutOrStdout()
	if export != "" {
		if a.cfg.Store.Driver == types.StoreMongo {
			return fmt.Errorf("export reads the sqlite store; it is not available with the mongo driver")
		}
		return a.sqlite.Export(ctx, w, store.ExportFormat(export), opts)
	}

	stories, err := a.stories.ListStories(ctx, opts)
	if err != nil {
		return err
	}
	return formatStories(w, stories, jsonOutput)
}

func listOptsFromFlags(cmd *cobra.Command) (store.ListOptions, error) {
	category, _ := cmd.Flags().GetString("category")
	trending, _ := cmd.Flags().GetBool("trending")
	since, _ := cmd.Flags().GetDuration("since")
	limit, _ := cmd.Flags().GetInt("limit")

	opts := store.ListOptions{
		Category:     types.Category(category),
		TrendingOnly: trending,
		Limit:        limit,
	}
	if category != "" && !opts.Category.Valid() {
		return opts, fmt.Errorf("unknown category %q", category)
	}
	if since > 0 {
		opts.Since = time.Now().Add(-since)
	}
	return opts, nil
}

func formatStories(w io.Writer, stories []types.StoredStory, jsonOutput bool) error {
	if jsonOutput {
		if stories == nil {
			stories = []types.StoredStory{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stories)
	}

	if len(stories) == 0 {
		fmt.Fprintln(w, "No stories found.")
		return nil
	}

	fmt.Fprintf(w, "%-5s  %-8s  %-15s  %-50s  %-20s  %s\n",
		"Score", "Impact", "Category", "Title", "Source", "Trending")
	fmt.Fprintln(w, strings.Repeat("-", 112))

	for _, st := range stories {
		title := st.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		src := st.SourceName
		if src == "" {
			src = st.Domain
		}
		if len(src) > 20 {
			src = src[:17] + "..."
		}
		trending := ""
		if st.Trending {
			trending = "yes"
		}
		fmt.Fprintf(w, "%-5.1f  %-8s  %-15s  %-50s  %-20s  %s\n",
			st.Score, st.Impact, st.Category, title, src, trending)
	}

	fmt.Fprintf(w, "\n%d stories\n", len(stories))
	return nil
}

func init() {
	storiesCmd.Flags().String("category", "", "filter by category")
	storiesCmd.Flags().Bool("trending", false, "only trending stories")
	storiesCmd.Flags().Duration("since", 0, "only stories processed within this window (e.g. 24h)")
	storiesCmd.Flags().Int("limit", 50, "maximum number of stories")
	storiesCmd.Flags().Bool("json", false, "output stories as JSON")
	storiesCmd.Flags().String("export", "", "write export entries in this format (yaml or json)")

	rootCmd.AddCommand(storiesCmd)
}
