// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

func TestCacheLookupAndUpsert(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()

	a := types.CacheKey{URL: "https://example.com/a", Hash: "h1"}
	b := types.CacheKey{URL: "https://example.com/b", Hash: "h2"}
	require.NoError(t, s.Upsert(ctx, []types.SummaryCacheEntry{
		{Key: a, Summary: "summary a", CreatedAt: processed},
	}))

	got, err := s.Lookup(ctx, []types.CacheKey{a, b})
	require.NoError(t, err)
	assert.Equal(t, map[types.CacheKey]string{a: "summary a"}, got)
}

func TestCacheKeyIncludesHash(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()

	old := types.CacheKey{URL: "https://example.com/a", Hash: "old"}
	require.NoError(t, s.Upsert(ctx, []types.SummaryCacheEntry{{Key: old, Summary: "stale"}}))

	got, err := s.Lookup(ctx, []types.CacheKey{{URL: old.URL, Hash: "new"}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCacheUpsertOverwrites(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()

	k := types.CacheKey{URL: "https://example.com/a", Hash: "h"}
	require.NoError(t, s.Upsert(ctx, []types.SummaryCacheEntry{{Key: k, Summary: "first", CreatedAt: processed}}))
	require.NoError(t, s.Upsert(ctx, []types.SummaryCacheEntry{{Key: k, Summary: "second", CreatedAt: processed.Add(time.Hour)}}))

	got, err := s.Lookup(ctx, []types.CacheKey{k})
	require.NoError(t, err)
	assert.Equal(t, "second", got[k])
}

func TestCacheLookupManyKeys(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()

	var keys []types.CacheKey
	var entries []types.SummaryCacheEntry
	for i := 0; i < 900; i++ {
		k := types.CacheKey{URL: fmt.Sprintf("https://example.com/%d", i), Hash: "h"}
		keys = append(keys, k)
		if i%2 == 0 {
			entries = append(entries, types.SummaryCacheEntry{Key: k, Summary: fmt.Sprintf("s%d", i), CreatedAt: processed})
		}
	}
	require.NoError(t, s.Upsert(ctx, entries))

	got, err := s.Lookup(ctx, keys)
	require.NoError(t, err)
	assert.Len(t, got, 450)
	assert.Equal(t, "s898", got[keys[898]])
}

func TestCacheEmptyInputs(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, nil))
	got, err := s.Lookup(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeleteCacheOlderThan(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()

	oldKey := types.CacheKey{URL: "https://example.com/old", Hash: "h"}
	newKey := types.CacheKey{URL: "https://example.com/new", Hash: "h"}
	require.NoError(t, s.Upsert(ctx, []types.SummaryCacheEntry{
		{Key: oldKey, Summary: "old", CreatedAt: processed.Add(-31 * 24 * time.Hour)},
		{Key: newKey, Summary: "new", CreatedAt: processed},
	}))

	n, err := s.DeleteCacheOlderThan(ctx, processed.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.Lookup(ctx, []types.CacheKey{oldKey, newKey})
	require.NoError(t, err)
	assert.Equal(t, map[types.CacheKey]string{newKey: "new"}, got)
}
