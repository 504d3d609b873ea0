// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package canon

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

func article(t *testing.T, rawURL, title, image string, at time.Time) types.CanonicalArticle {
	t.Helper()
	a, ok := Canonicalize(types.RawArticle{URL: rawURL, Title: title, ImageURL: image, PublishedAt: at})
	require.True(t, ok, "canonicalize %s", rawURL)
	return a
}

func TestDedupePrefersImageVariant(t *testing.T) {
	// Same domain, path and timestamp from two providers; only the second has an image.
	fromSearch := article(t, "https://www.example.com/park?utm_source=api", "Park opens", "", published)
	fromSearch.Provider = types.ProviderSearch
	fromFeed := article(t, "https://example.com/park", "Park opens to public", "https://example.com/park.jpg", published)
	fromFeed.Provider = types.ProviderFeed

	out := Dedupe([]types.CanonicalArticle{fromSearch, fromFeed})
	require.Len(t, out, 1)
	assert.Equal(t, "https://example.com/park.jpg", out[0].ImageURL)
	assert.Equal(t, types.ProviderFeed, out[0].Provider)
}

func TestDedupeKeepsFirstSeenOnTie(t *testing.T) {
	tests := []struct {
		name        string
		firstImage  string
		secondImage string
	}{
		{"neither has image", "", ""},
		{"both have image", "https://example.com/1.jpg", "https://example.com/2.jpg"},
		{"only first has image", "https://example.com/1.jpg", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := article(t, "https://example.com/a", "first", tt.firstImage, published)
			second := article(t, "https://example.com/a", "second", tt.secondImage, published)

			out := Dedupe([]types.CanonicalArticle{first, second})
			require.Len(t, out, 1)
			assert.Equal(t, "first", out[0].Title)
		})
	}
}

func TestDedupeSortsNewestFirstWithMissingLast(t *testing.T) {
	older := article(t, "https://example.com/older", "older", "", published.Add(-time.Hour))
	noDate1 := article(t, "https://example.com/nodate1", "nodate1", "", time.Time{})
	newer := article(t, "https://example.com/newer", "newer", "", published)
	noDate2 := article(t, "https://example.com/nodate2", "nodate2", "", time.Time{})

	out := Dedupe([]types.CanonicalArticle{older, noDate1, newer, noDate2})
	require.Len(t, out, 4)

	titles := make([]string, len(out))
	for i, a := range out {
		titles[i] = a.Title
	}
	assert.Equal(t, []string{"newer", "older", "nodate1", "nodate2"}, titles)
}

func TestDedupeOrdersTimestampsOutsideNanoRange(t *testing.T) {
	moon := article(t, "https://example.com/moon", "moon", "", time.Date(1969, 7, 20, 20, 17, 0, 0, time.UTC))
	noDate := article(t, "https://example.com/nodate", "nodate", "", time.Time{})
	future := article(t, "https://example.com/future", "future", "", time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC))
	now := article(t, "https://example.com/now", "now", "", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	out := Dedupe([]types.CanonicalArticle{moon, noDate, future, now})

	titles := make([]string, len(out))
	for i, a := range out {
		titles[i] = a.Title
	}
	assert.Equal(t, []string{"future", "now", "moon", "nodate"}, titles)
}

func TestDedupeDropsURLless(t *testing.T) {
	good := article(t, "https://example.com/a", "a", "", published)
	out := Dedupe([]types.CanonicalArticle{
		{Title: "no url", Fingerprint: "abc"},
		good,
		{Title: "no fingerprint", URL: "https://example.com/b"},
	})
	require.Len(t, out, 1)
	assert.Equal(t, good.URL, out[0].URL)
}

func TestDedupeIdempotentAndCountsDistinct(t *testing.T) {
	var input []types.CanonicalArticle
	distinct := map[string]bool{}
	for i := 0; i < 30; i++ {
		// Paths repeat every 7 items, timestamps every 3, so fingerprints collide often.
		path := fmt.Sprintf("https://example.com/s/%d", i%7)
		at := published.Add(time.Duration(i%3) * time.Hour)
		if i%5 == 0 {
			at = time.Time{}
		}
		image := ""
		if i%4 == 0 {
			image = fmt.Sprintf("https://example.com/%d.jpg", i)
		}
		a := article(t, path, fmt.Sprintf("t%d", i), image, at)
		distinct[a.Fingerprint] = true
		input = append(input, a)
	}

	once := Dedupe(input)
	twice := Dedupe(once)

	assert.Len(t, once, len(distinct))
	assert.Equal(t, once, twice)
}

func TestDedupeEmpty(t *testing.T) {
	assert.Empty(t, Dedupe(nil))
}
