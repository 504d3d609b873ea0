// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeSearcher struct {
	results []types.RawArticle
	err     error
	got     []SearchRequest
}

func (f *fakeSearcher) Search(_ context.Context, req SearchRequest) ([]types.RawArticle, error) {
	f.got = append(f.got, req)
	return f.results, f.err
}

type fakeOutlets struct {
	byDomain map[string][]types.RawArticle
	errs     map[string]error
	delay    time.Duration
	block    bool

	mu          sync.Mutex
	calls       []string
	inFlight    int32
	maxInFlight int32
}

func (f *fakeOutlets) FetchOutlet(ctx context.Context, domain string, _ time.Time) ([]types.RawArticle, error) {
	f.mu.Lock()
	f.calls = append(f.calls, domain)
	f.mu.Unlock()

	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		m := atomic.LoadInt32(&f.maxInFlight)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxInFlight, m, n) {
			break
		}
	}

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := f.errs[domain]; err != nil {
		return nil, err
	}
	return f.byDomain[domain], nil
}

func (f *fakeOutlets) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.calls...)
	sort.Strings(out)
	return out
}

func primaryArticles(n, withoutImage int) []types.RawArticle {
	out := make([]types.RawArticle, n)
	for i := range out {
		out[i] = types.RawArticle{
			Provider:    types.ProviderSearch,
			Title:       fmt.Sprintf("story %d", i),
			URL:         fmt.Sprintf("https://news.example.com/story/%d", i),
			PublishedAt: fixedNow.Add(-time.Duration(i) * time.Minute),
		}
		if i >= withoutImage {
			out[i].ImageURL = fmt.Sprintf("https://news.example.com/img/%d.jpg", i)
		}
	}
	return out
}

func newBridge(p Searcher, o OutletFetcher) *Bridge {
	return &Bridge{
		Primary: p,
		Outlets: o,
		Logger:  zerolog.Nop(),
		Now:     func() time.Time { return fixedNow },
	}
}

func TestSearchSmartFallbackWhenImagePoor(t *testing.T) {
	primary := &fakeSearcher{results: primaryArticles(10, 5)}
	outlets := &fakeOutlets{byDomain: map[string][]types.RawArticle{
		"a.com": {{Provider: types.ProviderFeed, Title: "feed a", URL: "https://a.com/1", ImageURL: "https://a.com/1.jpg"}},
	}}
	b := newBridge(primary, outlets)

	out, err := b.SearchSmart(context.Background(), SmartQuery{Query: "hope", Domains: []string{"a.com", "b.com"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.com", "b.com"}, outlets.called())
	assert.Len(t, out, 11)
}

func TestSearchSmartNoFallbackWhenImagesPresent(t *testing.T) {
	primary := &fakeSearcher{results: primaryArticles(10, 0)}
	outlets := &fakeOutlets{}
	b := newBridge(primary, outlets)

	out, err := b.SearchSmart(context.Background(), SmartQuery{Query: "hope", Domains: []string{"a.com"}})
	require.NoError(t, err)

	assert.Empty(t, outlets.called())
	assert.Len(t, out, 10)
}

func TestSearchSmartFallbackThreshold(t *testing.T) {
	tests := []struct {
		name     string
		missing  int
		fallback bool
	}{
		{"40 percent stays primary", 4, false},
		{"50 percent falls back", 5, true},
		{"all missing falls back", 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fallback, needsFallback(primaryArticles(10, tt.missing)))
		})
	}
	assert.True(t, needsFallback(nil), "empty primary falls back")
}

func TestSearchSmartPrimaryFailureIsEmpty(t *testing.T) {
	primary := &fakeSearcher{err: errors.New("connection refused")}
	outlets := &fakeOutlets{byDomain: map[string][]types.RawArticle{
		"a.com": {{Title: "feed a", URL: "https://a.com/1"}},
	}}
	b := newBridge(primary, outlets)

	out, err := b.SearchSmart(context.Background(), SmartQuery{Query: "hope", Domains: []string{"a.com"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "https://a.com/1", out[0].URL)
}

func TestSearchSmartOutletFailureIsolated(t *testing.T) {
	outlets := &fakeOutlets{
		byDomain: map[string][]types.RawArticle{
			"good.com": {{Title: "good", URL: "https://good.com/1"}},
			"also.com": {{Title: "also", URL: "https://also.com/1"}},
		},
		errs: map[string]error{"bad.com": errors.New("feed returned HTTP 500")},
	}
	b := newBridge(&fakeSearcher{}, outlets)

	out, err := b.SearchSmart(context.Background(), SmartQuery{Query: "hope", Domains: []string{"good.com", "bad.com", "also.com"}})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestSearchSmartOutletTimeout(t *testing.T) {
	b := newBridge(&fakeSearcher{}, &fakeOutlets{block: true})
	b.OutletTimeout = 20 * time.Millisecond

	start := time.Now()
	out, err := b.SearchSmart(context.Background(), SmartQuery{Query: "hope", Domains: []string{"slow.com"}})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSearchSmartOutletConcurrencyBound(t *testing.T) {
	outlets := &fakeOutlets{delay: 10 * time.Millisecond}
	b := newBridge(&fakeSearcher{}, outlets)
	b.OutletConcurrency = 2

	domains := []string{"a.com", "b.com", "c.com", "d.com", "e.com", "f.com"}
	_, err := b.SearchSmart(context.Background(), SmartQuery{Query: "hope", Domains: domains})
	require.NoError(t, err)

	assert.Len(t, outlets.called(), len(domains))
	assert.LessOrEqual(t, atomic.LoadInt32(&outlets.maxInFlight), int32(2))
}

func TestSearchSmartFiltersUntitledFallback(t *testing.T) {
	outlets := &fakeOutlets{byDomain: map[string][]types.RawArticle{
		"a.com": {
			{Title: "", URL: "https://a.com/untitled"},
			{Title: "no link"},
			{Title: "kept", URL: "https://a.com/kept"},
		},
	}}
	b := newBridge(&fakeSearcher{}, outlets)

	out, err := b.SearchSmart(context.Background(), SmartQuery{Query: "hope", Domains: []string{"a.com"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "kept", out[0].Title)
}

func TestSearchSmartPrefersImageAcrossProviders(t *testing.T) {
	at := fixedNow.Add(-time.Hour)
	primary := &fakeSearcher{results: []types.RawArticle{
		{Provider: types.ProviderSearch, Title: "Park opens", URL: "https://www.city.gov/park?utm_source=newsapi", PublishedAt: at},
	}}
	outlets := &fakeOutlets{byDomain: map[string][]types.RawArticle{
		"city.gov": {{Provider: types.ProviderFeed, Title: "Park opens!", URL: "https://city.gov/park", ImageURL: "https://city.gov/park.jpg", PublishedAt: at}},
	}}
	b := newBridge(primary, outlets)

	out, err := b.SearchSmart(context.Background(), SmartQuery{Query: "park", Domains: []string{"city.gov"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "https://city.gov/park.jpg", out[0].ImageURL)
}

func TestSearchSmartDefaultsSince(t *testing.T) {
	primary := &fakeSearcher{results: primaryArticles(1, 0)}
	b := newBridge(primary, nil)

	_, err := b.SearchSmart(context.Background(), SmartQuery{Query: "hope", PageSize: 20, SortBy: "publishedAt"})
	require.NoError(t, err)
	require.Len(t, primary.got, 1)
	assert.Equal(t, fixedNow.Add(-24*time.Hour), primary.got[0].Since)
	assert.Equal(t, 20, primary.got[0].PageSize)
	assert.Equal(t, "publishedAt", primary.got[0].SortBy)
}

func TestSearchSmartRejectsInvalidQuery(t *testing.T) {
	tests := []struct {
		name   string
		bridge *Bridge
		query  SmartQuery
	}{
		{"no primary", newBridge(nil, nil), SmartQuery{Query: "hope"}},
		{"negative page size", newBridge(&fakeSearcher{}, nil), SmartQuery{Query: "hope", PageSize: -1}},
		{"negative pages", newBridge(&fakeSearcher{}, nil), SmartQuery{Query: "hope", MaxPages: -2}},
		{"empty", newBridge(&fakeSearcher{}, nil), SmartQuery{Query: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.bridge.SearchSmart(context.Background(), tt.query)
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}
