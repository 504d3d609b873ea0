// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists StoredStory records and the summary cache. The
// SQLite store is the default and also serves the summary cache; the Mongo
// store is an alternative for stories.
package store

import (
	"errors"
	"time"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

// DefaultBatchSize is the number of stories written per upsert call.
const DefaultBatchSize = 50

// ErrEmptyFilter is returned by DeleteStories for a filter that would
// match every story.
var ErrEmptyFilter = errors.New("delete filter has no predicates")

// StoryFilter selects stories for deletion. Predicates combine with AND;
// at least one must be set.
type StoryFilter struct {
	// ProcessedBefore matches stories processed strictly before this time.
	ProcessedBefore time.Time

	// Categories matches stories in any of these categories.
	Categories []types.Category
}

// IsEmpty reports whether the filter has no predicates.
func (f StoryFilter) IsEmpty() bool {
	return f.ProcessedBefore.IsZero() && len(f.Categories) == 0
}

// ListOptions filters ListStories. Results are ordered newest processed
// first, then by score.
type ListOptions struct {
	Category     types.Category
	TrendingOnly bool
	Since        time.Time
	Limit        int
}

// TrendingOptions selects the stories flagged as trending: accepted
// stories processed at or after Since with at least MinImpact, ranked by
// score then publish time, top Limit.
type TrendingOptions struct {
	Since     time.Time
	Limit     int
	MinImpact types.ImpactTier
}

// impactsAtLeast returns the tiers whose rank is at least min's.
func impactsAtLeast(min types.ImpactTier) []string {
	var out []string
	for _, t := range []types.ImpactTier{types.ImpactHigh, types.ImpactMedium, types.ImpactLow, types.ImpactMinimal} {
		if t.Rank() >= min.Rank() {
			out = append(out, string(t))
		}
	}
	return out
}

// chunk splits stories into slices of at most size elements.
func chunk(stories []types.StoredStory, size int) [][]types.StoredStory {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]types.StoredStory
	for len(stories) > size {
		out = append(out, stories[:size])
		stories = stories[size:]
	}
	if len(stories) > 0 {
		out = append(out, stories)
	}
	return out
}
