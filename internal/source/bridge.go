// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/goodnews-engine/internal/canon"
	"github.com/pdiddy/goodnews-engine/internal/metrics"
	"github.com/pdiddy/goodnews-engine/pkg/types"
)

const (
	// DefaultOutletConcurrency bounds parallel outlet fetches.
	DefaultOutletConcurrency = 4

	// DefaultOutletTimeout bounds a single outlet fetch.
	DefaultOutletTimeout = 7 * time.Second

	// DefaultSinceWindow is used when a query carries no since cutoff.
	DefaultSinceWindow = 24 * time.Hour
)

// ErrInvalidQuery reports a SmartQuery that cannot be executed.
var ErrInvalidQuery = errors.New("invalid query")

// SmartQuery is one SearchSmart call.
type SmartQuery struct {
	Query    string
	Domains  []string
	Since    time.Time
	PageSize int
	SortBy   string
	MaxPages int
}

// Bridge combines the primary search with the per-outlet feed fallback.
type Bridge struct {
	Primary Searcher

	// Outlets serves the fallback. Nil disables it.
	Outlets OutletFetcher

	OutletConcurrency int
	OutletTimeout     time.Duration

	Logger zerolog.Logger

	// Now returns the current time; nil uses time.Now.
	Now func() time.Time
}

// SearchSmart queries the primary source and falls back to the outlet
// feeds when the primary result is empty or image-poor. Network failures
// of either source never surface as errors; only an unusable query or a
// missing primary searcher does.
func (b *Bridge) SearchSmart(ctx context.Context, q SmartQuery) ([]types.CanonicalArticle, error) {
	if err := b.validate(q); err != nil {
		return nil, err
	}

	since := q.Since
	if since.IsZero() {
		since = b.now().Add(-DefaultSinceWindow)
	}

	primary := b.searchPrimary(ctx, q, since)

	merged := primary
	if needsFallback(primary) && len(q.Domains) > 0 && b.Outlets != nil {
		metrics.FallbackTriggered.Inc()
		b.Logger.Debug().
			Str("query", q.Query).
			Int("primary", len(primary)).
			Int("outlets", len(q.Domains)).
			Msg("outlet fallback")
		merged = append(merged, usable(b.fetchOutlets(ctx, q.Domains, since))...)
	}

	articles, dropped := canon.CanonicalizeAll(merged)
	out := canon.Dedupe(articles)
	b.Logger.Debug().
		Str("query", q.Query).
		Int("merged", len(merged)).
		Int("dropped", dropped).
		Int("unique", len(out)).
		Msg("search complete")
	return out, nil
}

func (b *Bridge) validate(q SmartQuery) error {
	if b.Primary == nil {
		return fmt.Errorf("%w: no primary searcher configured", ErrInvalidQuery)
	}
	if q.PageSize < 0 {
		return fmt.Errorf("%w: negative page size %d", ErrInvalidQuery, q.PageSize)
	}
	if q.MaxPages < 0 {
		return fmt.Errorf("%w: negative max pages %d", ErrInvalidQuery, q.MaxPages)
	}
	if strings.TrimSpace(q.Query) == "" && len(q.Domains) == 0 {
		return fmt.Errorf("%w: empty query and no domains", ErrInvalidQuery)
	}
	return nil
}

// searchPrimary calls the primary searcher; a failure is logged and
// yields an empty result.
func (b *Bridge) searchPrimary(ctx context.Context, q SmartQuery, since time.Time) []types.RawArticle {
	raws, err := b.Primary.Search(ctx, SearchRequest{
		Query:    q.Query,
		Domains:  q.Domains,
		Since:    since,
		PageSize: q.PageSize,
		SortBy:   q.SortBy,
		MaxPages: q.MaxPages,
	})
	if err != nil {
		metrics.SourceErrors.WithLabelValues(string(types.ProviderSearch)).Inc()
		b.Logger.Warn().Err(err).Str("query", q.Query).Msg("primary search failed")
		return nil
	}
	metrics.ArticlesFetched.WithLabelValues(string(types.ProviderSearch)).Add(float64(len(raws)))
	return raws
}

// fetchOutlets fetches every domain concurrently. Each fetch writes only
// its own slot, so a slow or failing outlet affects no other.
func (b *Bridge) fetchOutlets(ctx context.Context, domains []string, since time.Time) []types.RawArticle {
	limit := b.OutletConcurrency
	if limit <= 0 {
		limit = DefaultOutletConcurrency
	}
	timeout := b.OutletTimeout
	if timeout <= 0 {
		timeout = DefaultOutletTimeout
	}

	slots := make([][]types.RawArticle, len(domains))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, domain := range domains {
		wg.Add(1)
		go func(i int, domain string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			octx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			raws, err := b.Outlets.FetchOutlet(octx, domain, since)
			if err != nil {
				metrics.SourceErrors.WithLabelValues(string(types.ProviderFeed)).Inc()
				b.Logger.Warn().Err(err).Str("domain", domain).Msg("outlet fetch failed")
				return
			}
			slots[i] = raws
		}(i, domain)
	}
	wg.Wait()

	var out []types.RawArticle
	for _, s := range slots {
		out = append(out, s...)
	}
	metrics.ArticlesFetched.WithLabelValues(string(types.ProviderFeed)).Add(float64(len(out)))
	return out
}

// needsFallback reports whether the primary result is empty or more than
// 40% of it lacks an image.
func needsFallback(primary []types.RawArticle) bool {
	if len(primary) == 0 {
		return true
	}
	missing := 0
	for _, a := range primary {
		if !a.HasImage() {
			missing++
		}
	}
	return missing*10 > len(primary)*4
}

// usable drops fallback entries without a title or URL.
func usable(raws []types.RawArticle) []types.RawArticle {
	out := raws[:0]
	for _, a := range raws {
		if strings.TrimSpace(a.Title) == "" || strings.TrimSpace(a.URL) == "" {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (b *Bridge) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}
