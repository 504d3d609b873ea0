// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/goodnews-engine/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the HTTP surface",
	Long: `Serve runs light and full ingestion passes and the maintenance sweep
on fixed intervals, and serves /health, /ready, /metrics and /api/stories
until interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	lightEvery, _ := cmd.Flags().GetDuration("light-interval")
	fullEvery, _ := cmd.Flags().GetDuration("full-interval")
	maintainEvery, _ := cmd.Flags().GetDuration("maintain-interval")
	noStartRun, _ := cmd.Flags().GetBool("no-start-run")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg, logger, appOptions{sources: true})
	if err != nil {
		return err
	}
	defer a.close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.pipeline.RunScheduled(ctx, pipeline.Schedule{
			Light:      lightEvery,
			Full:       fullEvery,
			Maintain:   maintainEvery,
			RunAtStart: !noStartRun,
		}, pipeline.MaintenanceOptionsFrom(cfg.Maintenance, cfg.Cache))
	}()

	err = a.server(ctx).Serve(ctx, addr)
	cancel()
	wg.Wait()
	return err
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	serveCmd.Flags().Duration("light-interval", time.Hour, "interval between light runs (0 disables)")
	serveCmd.Flags().Duration("full-interval", 6*time.Hour, "interval between full runs (0 disables)")
	serveCmd.Flags().Duration("maintain-interval", time.Hour, "interval between maintenance sweeps (0 disables)")
	serveCmd.Flags().Bool("no-start-run", false, "skip the light run at startup")

	rootCmd.AddCommand(serveCmd)
}
