// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summarize produces short summaries for accepted articles through
// a content-hash keyed cache and a bounded pool of remote calls.
package summarize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

// Summarizer produces a summary for one article.
type Summarizer interface {
	Summarize(ctx context.Context, title, body string) (string, error)
}

// Cache stores summaries keyed by (url, content hash). Lookup returns only
// the keys that were found.
type Cache interface {
	Lookup(ctx context.Context, keys []types.CacheKey) (map[types.CacheKey]string, error)
	Upsert(ctx context.Context, entries []types.SummaryCacheEntry) error
}

// ErrNotConfigured is returned when a summarizer is constructed without
// credentials.
var ErrNotConfigured = errors.New("summarizer not configured")

// Ellipsis marks a summary cut to the display maximum.
const Ellipsis = "..."

// ContentHash is the hex SHA-256 of title, body and the RFC3339 UTC publish
// time joined by newlines. A zero time contributes an empty line.
func ContentHash(title, body string, published time.Time) string {
	ts := ""
	if !published.IsZero() {
		ts = published.UTC().Format(time.RFC3339)
	}
	sum := sha256.Sum256([]byte(title + "\n" + body + "\n" + ts))
	return hex.EncodeToString(sum[:])
}

// KeyFor returns the cache key of a classified article.
func KeyFor(a types.ClassifiedArticle) types.CacheKey {
	return types.CacheKey{
		URL:  a.URL,
		Hash: ContentHash(a.Title, a.Body(), a.PublishedAt),
	}
}

// TruncateRunes returns at most n runes of s. A non-positive n leaves s
// unchanged.
func TruncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// TruncateSummary cuts s to n runes and appends Ellipsis when it was cut.
func TruncateSummary(s string, n int) string {
	cut := TruncateRunes(s, n)
	if cut == s {
		return s
	}
	return cut + Ellipsis
}
