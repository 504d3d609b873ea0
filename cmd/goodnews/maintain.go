// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/goodnews-engine/internal/pipeline"
)

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Update trending stories and apply retention",
	Long: `Maintain flags the highest-scoring recent stories as trending and
deletes stories and cached summaries older than their retention.`,
	RunE: runMaintain,
}

func runMaintain(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	rep, err := a.pipeline.Maintain(ctx, pipeline.MaintenanceOptionsFrom(cfg.Maintenance, cfg.Cache))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	fmt.Fprintf(w, "Trending:        %d\n", rep.Trending)
	fmt.Fprintf(w, "Stories deleted: %d\n", rep.StoriesDeleted)
	fmt.Fprintf(w, "Cache deleted:   %d\n", rep.CacheDeleted)
	return nil
}

func init() {
	maintainCmd.Flags().Bool("json", false, "output the sweep report as JSON")

	rootCmd.AddCommand(maintainCmd)
}
