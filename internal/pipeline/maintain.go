// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/goodnews-engine/internal/store"
	"github.com/pdiddy/goodnews-engine/pkg/types"
)

// MaintenanceOptions configures one sweep. A zero retention skips that
// deletion.
type MaintenanceOptions struct {
	TrendingWindow time.Duration
	TrendingLimit  int
	MinImpact      types.ImpactTier
	StoryRetention time.Duration
	CacheRetention time.Duration
}

// MaintenanceOptionsFrom builds sweep options from configuration, with
// medium as the trending impact floor.
func MaintenanceOptionsFrom(m types.MaintenanceConfig, c types.CacheConfig) MaintenanceOptions {
	return MaintenanceOptions{
		TrendingWindow: m.TrendingWindow,
		TrendingLimit:  m.TrendingLimit,
		MinImpact:      types.ImpactMedium,
		StoryRetention: m.StoryRetention,
		CacheRetention: c.Retention,
	}
}

// MaintenanceReport counts what a sweep changed.
type MaintenanceReport struct {
	Trending       int   `json:"trending"`
	StoriesDeleted int64 `json:"stories_deleted"`
	CacheDeleted   int64 `json:"cache_deleted"`
}

// Maintain recomputes the trending flag and deletes stories and cache
// entries past retention.
func (p *Pipeline) Maintain(ctx context.Context, opts MaintenanceOptions) (MaintenanceReport, error) {
	if p.Maintainer == nil {
		return MaintenanceReport{}, fmt.Errorf("pipeline has no maintainer configured")
	}
	if !p.mu.TryLock() {
		return MaintenanceReport{}, ErrRunInProgress
	}
	defer p.mu.Unlock()

	p.enter(StateMaintenanceSweep, "")
	defer p.enter(StateIdle, "")

	now := p.now()
	var rep MaintenanceReport

	trendingOpts := store.TrendingOptions{Limit: opts.TrendingLimit, MinImpact: opts.MinImpact}
	if opts.TrendingWindow > 0 {
		trendingOpts.Since = now.Add(-opts.TrendingWindow)
	}
	n, err := p.Maintainer.UpdateTrending(ctx, trendingOpts)
	if err != nil {
		return rep, fmt.Errorf("updating trending: %w", err)
	}
	rep.Trending = n

	if opts.StoryRetention > 0 {
		deleted, err := p.Maintainer.DeleteStories(ctx, store.StoryFilter{ProcessedBefore: now.Add(-opts.StoryRetention)})
		if err != nil {
			return rep, fmt.Errorf("deleting expired stories: %w", err)
		}
		rep.StoriesDeleted = deleted
	}

	if p.Cache != nil && opts.CacheRetention > 0 {
		deleted, err := p.Cache.DeleteCacheOlderThan(ctx, now.Add(-opts.CacheRetention))
		if err != nil {
			return rep, fmt.Errorf("deleting expired summaries: %w", err)
		}
		rep.CacheDeleted = deleted
	}

	p.Logger.Info().
		Int("trending", rep.Trending).
		Int64("stories_deleted", rep.StoriesDeleted).
		Int64("cache_deleted", rep.CacheDeleted).
		Msg("maintenance complete")
	return rep, nil
}
