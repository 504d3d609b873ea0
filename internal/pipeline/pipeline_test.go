// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/goodnews-engine/internal/source"
	"github.com/pdiddy/goodnews-engine/internal/store"
	"github.com/pdiddy/goodnews-engine/pkg/types"
)

// --- fakes ---

var now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type fakeSources struct {
	mu      sync.Mutex
	results map[string][]types.CanonicalArticle
	errs    map[string]error
	queries []source.SmartQuery
	onCall  func()
}

func (f *fakeSources) SearchSmart(_ context.Context, q source.SmartQuery) ([]types.CanonicalArticle, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall()
	}
	if err := f.errs[q.Query]; err != nil {
		return nil, err
	}
	return f.results[q.Query], nil
}

type fakeSummarizer struct {
	got    []types.ClassifiedArticle
	onCall func()
}

func (f *fakeSummarizer) SummarizeAccepted(_ context.Context, articles []types.ClassifiedArticle) []string {
	if f.onCall != nil {
		f.onCall()
	}
	f.got = articles
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = "summary of " + a.Title
	}
	return out
}

type fakeStore struct {
	stored   []types.StoredStory
	err      error
	onCall   func()
	trending store.TrendingOptions
	deleted  store.StoryFilter
}

func (f *fakeStore) UpsertStories(_ context.Context, stories []types.StoredStory) error {
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, stories...)
	return nil
}

func (f *fakeStore) UpdateTrending(_ context.Context, opts store.TrendingOptions) (int, error) {
	f.trending = opts
	return 3, nil
}

func (f *fakeStore) DeleteStories(_ context.Context, filter store.StoryFilter) (int64, error) {
	f.deleted = filter
	return 2, nil
}

type fakeCache struct{ cutoff time.Time }

func (f *fakeCache) DeleteCacheOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 5, nil
}

type fakePublisher struct {
	runID   string
	stories []types.StoredStory
	err     error
}

func (f *fakePublisher) PublishStories(_ context.Context, runID string, stories []types.StoredStory) error {
	f.runID = runID
	f.stories = stories
	return f.err
}

// --- helpers ---

func article(url, title, body string) types.CanonicalArticle {
	return types.CanonicalArticle{
		Title:       title,
		Description: body,
		URL:         url,
		Domain:      "example.com",
		Fingerprint: "fp-" + url,
		Provider:    types.ProviderSearch,
		PublishedAt: now.Add(-time.Hour),
	}
}

var (
	good  = article("https://example.com/good", "Union victory brings wage increase", "Workers celebrate a hopeful milestone.")
	good2 = article("https://example.com/vaccine", "New vaccine approved", "Health officials celebrate lives saved by the program.")
	bad   = article("https://example.com/bad", "Shooting downtown", "Police report a fatal shooting.")
	dull  = article("https://example.com/dull", "Council meets Tuesday", "The agenda is posted online.")
)

func testPipeline(src *fakeSources, st *fakeStore) *Pipeline {
	return &Pipeline{
		Config: types.PipelineConfig{
			Topics:  []string{"labor", "health"},
			Domains: []string{"apnews.com"},
			SortBy:  "publishedAt",
			Light:   types.ModeConfig{Window: 12 * time.Hour, PageSize: 20, MaxPages: 1},
			Full:    types.ModeConfig{Window: 72 * time.Hour, PageSize: 100, MaxPages: 3},
		},
		Sources: src,
		Store:   st,
		Logger:  zerolog.Nop(),
		Now:     func() time.Time { return now },
	}
}

// --- run ---

func TestRunStoresAcceptedStories(t *testing.T) {
	src := &fakeSources{results: map[string][]types.CanonicalArticle{
		"labor":  {good, bad, dull},
		"health": {good2, good},
	}}
	st := &fakeStore{}
	sum := &fakeSummarizer{}
	pub := &fakePublisher{}
	p := testPipeline(src, st)
	p.Summarizer = sum
	p.Publisher = pub

	rep, err := p.Run(context.Background(), ModeLight)
	require.NoError(t, err)

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, ModeLight, rep.Mode)
	assert.Equal(t, 2, rep.Queries)
	assert.Equal(t, 5, rep.Fetched)
	assert.Equal(t, 4, rep.Unique)
	assert.Equal(t, 2, rep.Accepted)
	assert.Equal(t, 2, rep.Rejected)
	assert.Equal(t, 2, rep.Summarized)
	assert.Equal(t, 2, rep.Stored)
	assert.True(t, rep.Published)

	require.Len(t, st.stored, 2)
	assert.Equal(t, good.URL, st.stored[0].URL)
	assert.Equal(t, types.CategoryLabor, st.stored[0].Category)
	assert.Equal(t, "summary of "+good.Title, st.stored[0].Summary)
	assert.Equal(t, now, st.stored[0].ProcessedAt)
	assert.False(t, st.stored[0].Trending)
	assert.Equal(t, good2.URL, st.stored[1].URL)

	assert.Equal(t, rep.RunID, pub.runID)
	assert.Len(t, pub.stories, 2)
	assert.Equal(t, StateIdle, p.State())
}

func TestRunQueryParameters(t *testing.T) {
	src := &fakeSources{}
	p := testPipeline(src, &fakeStore{})

	_, err := p.Run(context.Background(), ModeFull)
	require.NoError(t, err)

	require.Len(t, src.queries, 2)
	q := src.queries[0]
	assert.Equal(t, "labor", q.Query)
	assert.Equal(t, []string{"apnews.com"}, q.Domains)
	assert.Equal(t, now.Add(-72*time.Hour), q.Since)
	assert.Equal(t, 100, q.PageSize)
	assert.Equal(t, 3, q.MaxPages)
	assert.Equal(t, "publishedAt", q.SortBy)
}

func TestRunSkipsFailingQuery(t *testing.T) {
	src := &fakeSources{
		results: map[string][]types.CanonicalArticle{"health": {good2}},
		errs:    map[string]error{"labor": errors.New("boom")},
	}
	st := &fakeStore{}
	p := testPipeline(src, st)

	rep, err := p.Run(context.Background(), ModeLight)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.QueryErrors)
	assert.Equal(t, 1, rep.Stored)
}

func TestRunStoreFailureAborts(t *testing.T) {
	src := &fakeSources{results: map[string][]types.CanonicalArticle{"labor": {good}}}
	st := &fakeStore{err: errors.New("disk full")}
	pub := &fakePublisher{}
	p := testPipeline(src, st)
	p.Publisher = pub

	_, err := p.Run(context.Background(), ModeLight)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Nil(t, pub.stories)
	assert.Equal(t, StateIdle, p.State())
}

func TestRunPublishFailureIsNotFatal(t *testing.T) {
	src := &fakeSources{results: map[string][]types.CanonicalArticle{"labor": {good}}}
	p := testPipeline(src, &fakeStore{})
	p.Publisher = &fakePublisher{err: errors.New("nats down")}

	rep, err := p.Run(context.Background(), ModeLight)
	require.NoError(t, err)
	assert.False(t, rep.Published)
	assert.Equal(t, 1, rep.Stored)
}

func TestRunWithoutSummarizer(t *testing.T) {
	src := &fakeSources{results: map[string][]types.CanonicalArticle{"labor": {good}}}
	st := &fakeStore{}
	p := testPipeline(src, st)

	rep, err := p.Run(context.Background(), ModeLight)
	require.NoError(t, err)
	assert.Zero(t, rep.Summarized)
	require.Len(t, st.stored, 1)
	assert.Empty(t, st.stored[0].Summary)
}

func TestRunNothingAccepted(t *testing.T) {
	src := &fakeSources{results: map[string][]types.CanonicalArticle{"labor": {bad}}}
	st := &fakeStore{}
	pub := &fakePublisher{}
	p := testPipeline(src, st)
	p.Publisher = pub

	rep, err := p.Run(context.Background(), ModeLight)
	require.NoError(t, err)
	assert.Zero(t, rep.Stored)
	assert.Nil(t, st.stored)
	assert.Empty(t, pub.runID)
}

func TestRunStateTransitions(t *testing.T) {
	var seen []State
	src := &fakeSources{results: map[string][]types.CanonicalArticle{"labor": {good}}}
	st := &fakeStore{}
	sum := &fakeSummarizer{}
	p := testPipeline(src, st)
	p.Config.Topics = []string{"labor"}
	p.Summarizer = sum

	src.onCall = func() { seen = append(seen, p.State()) }
	sum.onCall = func() { seen = append(seen, p.State()) }
	st.onCall = func() { seen = append(seen, p.State()) }

	_, err := p.Run(context.Background(), ModeLight)
	require.NoError(t, err)
	assert.Equal(t, []State{StateQueryingSources, StateSummarizing, StatePersisting}, seen)
	assert.Equal(t, StateIdle, p.State())
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	src := &fakeSources{}
	p := testPipeline(src, &fakeStore{})
	p.Config.Topics = []string{"labor"}
	src.onCall = func() {
		close(entered)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), ModeLight)
		done <- err
	}()

	<-entered
	_, err := p.Run(context.Background(), ModeLight)
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(release)
	assert.NoError(t, <-done)
}

func TestRunUnknownMode(t *testing.T) {
	p := testPipeline(&fakeSources{}, &fakeStore{})
	_, err := p.Run(context.Background(), Mode("turbo"))
	assert.Error(t, err)
}

func TestRunRequiresStore(t *testing.T) {
	p := testPipeline(&fakeSources{}, nil)
	p.Store = nil
	_, err := p.Run(context.Background(), ModeLight)
	assert.Error(t, err)
}

// --- dedupe across queries ---

func TestDedupeAcrossQueries(t *testing.T) {
	upper := good
	upper.Title = "UNION VICTORY BRINGS WAGE INCREASE"
	sameTitleOtherURL := good
	sameTitleOtherURL.URL = "https://other.org/good"

	got := dedupeAcrossQueries([]types.CanonicalArticle{good, dull, upper, sameTitleOtherURL, dull})
	require.Len(t, got, 3)
	assert.Equal(t, good, got[0])
	assert.Equal(t, dull, got[1])
	assert.Equal(t, sameTitleOtherURL.URL, got[2].URL)
}

// --- mode and state ---

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "light", want: ModeLight},
		{in: " FULL ", want: ModeFull},
		{in: "", wantErr: true},
		{in: "deep", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "maintenance-sweep", StateMaintenanceSweep.String())
	assert.Equal(t, "state(42)", State(42).String())
}
