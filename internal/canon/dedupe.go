// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package canon

import (
	"sort"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

// Dedupe collapses articles sharing a fingerprint and returns them newest
// first. On a repeated fingerprint the stored entry is replaced only when
// it lacks an image and the incoming one has one; otherwise the first-seen
// entry is kept. Articles without a URL or fingerprint are dropped.
// Articles with no publish time sort last, in input order.
func Dedupe(articles []types.CanonicalArticle) []types.CanonicalArticle {
	seen := make(map[string]int, len(articles)) // fingerprint → index in out
	out := make([]types.CanonicalArticle, 0, len(articles))

	for _, a := range articles {
		if a.URL == "" || a.Fingerprint == "" {
			continue
		}
		if idx, ok := seen[a.Fingerprint]; ok {
			if !out[idx].HasImage() && a.HasImage() {
				out[idx] = a
			}
			continue
		}
		seen[a.Fingerprint] = len(out)
		out = append(out, a)
	}

	sortNewestFirst(out)
	return out
}

// sortNewestFirst is a stable sort on PublishedAt descending. Zero times
// land at the end whatever the range of the other timestamps.
func sortNewestFirst(articles []types.CanonicalArticle) {
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i].PublishedAt, articles[j].PublishedAt
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.After(b)
	})
}
