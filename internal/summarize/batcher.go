// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/pdiddy/goodnews-engine/internal/httputil"
	"github.com/pdiddy/goodnews-engine/internal/metrics"
	"github.com/pdiddy/goodnews-engine/pkg/types"
)

const (
	DefaultConcurrency     = 3
	DefaultTimeout         = 15 * time.Second
	DefaultMaxInputChars   = 8000
	DefaultMaxSummaryChars = 800
)

// Batcher summarizes accepted articles. Cache hits skip the remote call;
// misses run through a weighted semaphore so at most Concurrency calls are
// in flight. Summarizer and Cache may each be nil.
type Batcher struct {
	Summarizer Summarizer
	Cache      Cache

	Concurrency     int
	Timeout         time.Duration
	MaxInputChars   int
	MaxSummaryChars int

	// Policy retries transient summarizer failures.
	Policy httputil.Policy

	Logger zerolog.Logger

	// Now stamps new cache entries; nil uses time.Now.
	Now func() time.Time

	warnOnce sync.Once
}

// NewBatcher builds a batcher from cfg. Zero values in cfg fall back to
// the package defaults.
func NewBatcher(cfg types.SummarizeConfig, s Summarizer, c Cache, logger zerolog.Logger) *Batcher {
	b := &Batcher{
		Summarizer:      s,
		Cache:           c,
		Concurrency:     cfg.Concurrency,
		Timeout:         cfg.Timeout,
		MaxInputChars:   cfg.MaxInputChars,
		MaxSummaryChars: cfg.MaxSummaryChars,
		Policy:          httputil.TransientPolicy(cfg.RetryDelays),
		Logger:          logger,
	}
	if b.Concurrency <= 0 {
		b.Concurrency = DefaultConcurrency
	}
	if b.Timeout <= 0 {
		b.Timeout = DefaultTimeout
	}
	if b.MaxInputChars <= 0 {
		b.MaxInputChars = DefaultMaxInputChars
	}
	if b.MaxSummaryChars <= 0 {
		b.MaxSummaryChars = DefaultMaxSummaryChars
	}
	return b
}

// SummarizeAccepted returns one summary per article, aligned by index.
// Failed or skipped items are "". New non-empty summaries are written to
// the cache before it returns.
func (b *Batcher) SummarizeAccepted(ctx context.Context, articles []types.ClassifiedArticle) []string {
	out := make([]string, len(articles))
	if len(articles) == 0 {
		return out
	}

	keys := make([]types.CacheKey, len(articles))
	for i, a := range articles {
		keys[i] = KeyFor(a)
	}

	hits := b.lookup(ctx, keys)
	var misses []int
	for i, k := range keys {
		if s, ok := hits[k]; ok {
			out[i] = s
			metrics.SummaryCache.WithLabelValues("hit").Inc()
			continue
		}
		metrics.SummaryCache.WithLabelValues("miss").Inc()
		misses = append(misses, i)
	}

	if len(misses) == 0 {
		return out
	}
	if b.Summarizer == nil {
		b.warnOnce.Do(func() {
			b.Logger.Warn().Msg("no summarizer configured; stories are stored without summaries")
		})
		return out
	}

	b.runMisses(ctx, articles, misses, out)
	b.store(ctx, keys, misses, out)
	return out
}

// lookup batch-reads the cache. Errors are logged and treated as all-miss.
func (b *Batcher) lookup(ctx context.Context, keys []types.CacheKey) map[types.CacheKey]string {
	if b.Cache == nil {
		return nil
	}
	unique := make([]types.CacheKey, 0, len(keys))
	seen := make(map[types.CacheKey]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			unique = append(unique, k)
		}
	}
	hits, err := b.Cache.Lookup(ctx, unique)
	if err != nil {
		b.Logger.Warn().Err(err).Int("keys", len(unique)).Msg("summary cache lookup failed")
		return nil
	}
	return hits
}

// runMisses summarizes the missed indices. Each goroutine writes only its
// own slot of out.
func (b *Batcher) runMisses(ctx context.Context, articles []types.ClassifiedArticle, misses []int, out []string) {
	sem := semaphore.NewWeighted(int64(b.concurrency()))
	var wg sync.WaitGroup

	for _, idx := range misses {
		if err := sem.Acquire(ctx, 1); err != nil {
			b.Logger.Warn().Err(err).Int("remaining", len(misses)).Msg("summarization cancelled")
			break
		}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer sem.Release(1)
			out[idx] = b.summarizeOne(ctx, articles[idx])
		}(idx)
	}
	wg.Wait()
}

// summarizeOne runs one article through the retry policy and returns the
// truncated summary, or "" on failure.
func (b *Batcher) summarizeOne(ctx context.Context, a types.ClassifiedArticle) string {
	metrics.SummarizeInFlight.Inc()
	defer metrics.SummarizeInFlight.Dec()

	body := TruncateRunes(a.Body(), b.MaxInputChars)
	var summary string
	err := b.Policy.Do(ctx, func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, b.timeout())
		defer cancel()

		s, err := b.Summarizer.Summarize(cctx, a.Title, body)
		if err != nil {
			metrics.SummarizeCalls.WithLabelValues("error").Inc()
			return err
		}
		metrics.SummarizeCalls.WithLabelValues("ok").Inc()
		summary = s
		return nil
	})
	if err != nil {
		b.Logger.Warn().Err(err).Str("url", a.URL).Msg("summarization failed")
		return ""
	}
	return TruncateSummary(strings.TrimSpace(summary), b.MaxSummaryChars)
}

// store upserts the new non-empty summaries. Failures are logged.
func (b *Batcher) store(ctx context.Context, keys []types.CacheKey, misses []int, out []string) {
	if b.Cache == nil {
		return
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	var entries []types.SummaryCacheEntry
	for _, idx := range misses {
		if out[idx] == "" {
			continue
		}
		entries = append(entries, types.SummaryCacheEntry{
			Key:       keys[idx],
			Summary:   out[idx],
			CreatedAt: now().UTC(),
		})
	}
	if len(entries) == 0 {
		return
	}
	if err := b.Cache.Upsert(ctx, entries); err != nil {
		b.Logger.Warn().Err(err).Int("entries", len(entries)).Msg("summary cache upsert failed")
	}
}

func (b *Batcher) concurrency() int {
	if b.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return b.Concurrency
}

func (b *Batcher) timeout() time.Duration {
	if b.Timeout <= 0 {
		return DefaultTimeout
	}
	return b.Timeout
}
