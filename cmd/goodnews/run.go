// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/goodnews-engine/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion pass",
	Long: `Run searches every configured topic, falls back to the outlet feeds
when the search result is thin or image-poor, deduplicates, classifies,
summarizes accepted stories, and stores them.

The light mode looks back 12 hours with one page per topic; the full
mode looks back 72 hours with up to three pages of 100.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	modeName, _ := cmd.Flags().GetString("mode")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	mode, err := pipeline.ParseMode(modeName)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger, appOptions{sources: true})
	if err != nil {
		return err
	}
	defer a.close()

	rep, err := a.pipeline.Run(ctx, mode)
	if err != nil {
		return err
	}
	return formatRunReport(cmd.OutOrStdout(), rep, jsonOutput)
}

func formatRunReport(w io.Writer, rep pipeline.Report, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	fmt.Fprintf(w, "Run %s (%s)\n", rep.RunID, rep.Mode)
	fmt.Fprintf(w, "  Queries:    %d (%d failed)\n", rep.Queries, rep.QueryErrors)
	fmt.Fprintf(w, "  Fetched:    %d\n", rep.Fetched)
	fmt.Fprintf(w, "  Unique:     %d\n", rep.Unique)
	fmt.Fprintf(w, "  Accepted:   %d\n", rep.Accepted)
	fmt.Fprintf(w, "  Rejected:   %d\n", rep.Rejected)
	fmt.Fprintf(w, "  Summarized: %d\n", rep.Summarized)
	fmt.Fprintf(w, "  Stored:     %d\n", rep.Stored)
	fmt.Fprintf(w, "  Duration:   %s\n", rep.Duration.Round(time.Millisecond))
	return nil
}

func init() {
	runCmd.Flags().String("mode", "light", "run level: light or full")
	runCmd.Flags().Bool("json", false, "output the run report as JSON")

	rootCmd.AddCommand(runCmd)
}
