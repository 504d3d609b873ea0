// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

// lookupBatch bounds the number of keys per SELECT so the statement stays
// under SQLite's bound-parameter limit.
const lookupBatch = 400

// Lookup returns the cached summaries for the keys that exist.
func (s *SQLite) Lookup(ctx context.Context, keys []types.CacheKey) (map[types.CacheKey]string, error) {
	out := make(map[types.CacheKey]string, len(keys))
	for start := 0; start < len(keys); start += lookupBatch {
		end := min(start+lookupBatch, len(keys))
		if err := s.lookupBatch(ctx, keys[start:end], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLite) lookupBatch(ctx context.Context, keys []types.CacheKey, out map[types.CacheKey]string) error {
	or := make(sq.Or, len(keys))
	for i, k := range keys {
		or[i] = sq.Eq{"url": k.URL, "hash": k.Hash}
	}
	query, args, err := sq.Select("url", "hash", "summary").From("summary_cache").Where(or).ToSql()
	if err != nil {
		return fmt.Errorf("building cache lookup: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying summary cache: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k types.CacheKey
		var summary string
		if err := rows.Scan(&k.URL, &k.Hash, &summary); err != nil {
			return fmt.Errorf("scanning cache row: %w", err)
		}
		out[k] = summary
	}
	return rows.Err()
}

// Upsert writes entries, replacing any entry with the same key whole.
func (s *SQLite) Upsert(ctx context.Context, entries []types.SummaryCacheEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO summary_cache (url, hash, summary, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(url, hash) DO UPDATE SET summary=excluded.summary, created_at=excluded.created_at`)
	if err != nil {
		return fmt.Errorf("preparing cache upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		created := e.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, e.Key.URL, e.Key.Hash, e.Summary, formatTime(created)); err != nil {
			return fmt.Errorf("upserting cache entry %s: %w", e.Key.URL, err)
		}
	}
	return tx.Commit()
}

// DeleteCacheOlderThan removes cache entries created before cutoff.
func (s *SQLite) DeleteCacheOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := sq.Delete("summary_cache").Where(sq.Lt{"created_at": formatTime(cutoff)}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("building cache delete: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting cache entries: %w", err)
	}
	return res.RowsAffected()
}
