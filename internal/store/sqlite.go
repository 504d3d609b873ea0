// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

const dbFile = "goodnews.db"

// timeLayout keeps stored timestamps fixed-width so they compare
// lexically; the zero time is stored as "".
const timeLayout = "2006-01-02T15:04:05.000Z"

// SQLite stores stories and the summary cache in one database file under
// the data directory.
type SQLite struct {
	db        *sql.DB
	dataDir   string
	batchSize int
}

// NewSQLite opens or creates dataDir/goodnews.db and its schema.
func NewSQLite(cfg types.StoreConfig) (*SQLite, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	s := &SQLite{db: db, dataDir: cfg.DataDir, batchSize: batch}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DataDir returns the directory holding the database.
func (s *SQLite) DataDir() string {
	return s.dataDir
}

func (s *SQLite) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS stories (
			url TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			content TEXT,
			image_url TEXT,
			source_name TEXT,
			domain TEXT,
			published_at TEXT,
			fingerprint TEXT,
			provider TEXT,
			category TEXT NOT NULL,
			score REAL NOT NULL,
			impact TEXT NOT NULL,
			tags TEXT,
			accept INTEGER NOT NULL,
			summary TEXT,
			trending INTEGER NOT NULL DEFAULT 0,
			processed_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stories_processed_at ON stories(processed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_stories_category ON stories(category)`,
		`CREATE INDEX IF NOT EXISTS idx_stories_trending ON stories(trending)`,
		`CREATE TABLE IF NOT EXISTS summary_cache (
			url TEXT NOT NULL,
			hash TEXT NOT NULL,
			summary TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (url, hash)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_summary_cache_created_at ON summary_cache(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// UpsertStories writes stories keyed by URL in transactions of at most
// the configured batch size. An existing story keeps its trending flag,
// which only UpdateTrending changes. A failing chunk aborts the call;
// earlier chunks stay committed.
func (s *SQLite) UpsertStories(ctx context.Context, stories []types.StoredStory) error {
	for i, c := range chunk(stories, s.batchSize) {
		if err := s.upsertChunk(ctx, c); err != nil {
			return fmt.Errorf("upserting chunk %d: %w", i, err)
		}
	}
	return nil
}

func (s *SQLite) upsertChunk(ctx context.Context, stories []types.StoredStory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO stories (url, title, description, content, image_url, source_name, domain,
			published_at, fingerprint, provider, category, score, impact, tags, accept,
			summary, trending, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
			title=excluded.title, description=excluded.description, content=excluded.content,
			image_url=excluded.image_url, source_name=excluded.source_name, domain=excluded.domain,
			published_at=excluded.published_at, fingerprint=excluded.fingerprint,
			provider=excluded.provider, category=excluded.category, score=excluded.score,
			impact=excluded.impact, tags=excluded.tags, accept=excluded.accept,
			summary=excluded.summary, processed_at=excluded.processed_at`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, st := range stories {
		tagsJSON, _ := json.Marshal(st.Tags)
		_, err := stmt.ExecContext(ctx,
			st.URL, st.Title, st.Description, st.Content, st.ImageURL, st.SourceName, st.Domain,
			formatTime(st.PublishedAt), st.Fingerprint, string(st.Provider),
			string(st.Category), st.Score, string(st.Impact), string(tagsJSON), st.Accept,
			st.Summary, st.Trending, formatTime(st.ProcessedAt),
		)
		if err != nil {
			return fmt.Errorf("upserting story %s: %w", st.URL, err)
		}
	}
	return tx.Commit()
}

var storyColumns = []string{
	"url", "title", "description", "content", "image_url", "source_name", "domain",
	"published_at", "fingerprint", "provider", "category", "score", "impact", "tags",
	"accept", "summary", "trending", "processed_at",
}

// ListStories returns stories matching opts, newest processed first.
func (s *SQLite) ListStories(ctx context.Context, opts ListOptions) ([]types.StoredStory, error) {
	q := sq.Select(storyColumns...).From("stories")
	if opts.Category != "" {
		q = q.Where(sq.Eq{"category": string(opts.Category)})
	}
	if opts.TrendingOnly {
		q = q.Where(sq.Eq{"trending": true})
	}
	if !opts.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"processed_at": formatTime(opts.Since)})
	}
	q = q.OrderBy("processed_at DESC", "score DESC", "url")
	if opts.Limit > 0 {
		q = q.Limit(uint64(opts.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying stories: %w", err)
	}
	defer rows.Close()

	var out []types.StoredStory
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func scanStory(rows *sql.Rows) (types.StoredStory, error) {
	var (
		st                                                 types.StoredStory
		description, content, imageURL, sourceName, domain sql.NullString
		published, fingerprint, provider, tagsJSON         sql.NullString
		summary                                            sql.NullString
		category, impact, processed                        string
	)
	if err := rows.Scan(
		&st.URL, &st.Title, &description, &content, &imageURL, &sourceName, &domain,
		&published, &fingerprint, &provider, &category, &st.Score, &impact, &tagsJSON,
		&st.Accept, &summary, &st.Trending, &processed,
	); err != nil {
		return types.StoredStory{}, fmt.Errorf("scanning story: %w", err)
	}

	st.Description = description.String
	st.Content = content.String
	st.ImageURL = imageURL.String
	st.SourceName = sourceName.String
	st.Domain = domain.String
	st.PublishedAt = parseTime(published.String)
	st.Fingerprint = fingerprint.String
	st.Provider = types.Provider(provider.String)
	st.Category = types.Category(category)
	st.Impact = types.ImpactTier(impact)
	st.Summary = summary.String
	st.ProcessedAt = parseTime(processed)
	st.Tags = []string{}
	if tagsJSON.Valid && tagsJSON.String != "" {
		json.Unmarshal([]byte(tagsJSON.String), &st.Tags)
	}
	return st, nil
}

// UpdateTrending clears every trending flag and sets it on the stories
// selected by opts. It returns the number of stories flagged.
func (s *SQLite) UpdateTrending(ctx context.Context, opts TrendingOptions) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE stories SET trending = 0 WHERE trending = 1`); err != nil {
		return 0, fmt.Errorf("clearing trending: %w", err)
	}

	if opts.Limit <= 0 {
		return 0, tx.Commit()
	}

	pick := sq.Select("url").From("stories").
		Where(sq.Eq{"accept": true}).
		Where(sq.Eq{"impact": impactsAtLeast(opts.MinImpact)})
	if !opts.Since.IsZero() {
		pick = pick.Where(sq.GtOrEq{"processed_at": formatTime(opts.Since)})
	}
	pick = pick.OrderBy("score DESC", "published_at DESC", "url").Limit(uint64(opts.Limit))

	sub, args, err := pick.ToSql()
	if err != nil {
		return 0, fmt.Errorf("building trending query: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE stories SET trending = 1 WHERE url IN (`+sub+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("setting trending: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), tx.Commit()
}

// DeleteStories removes stories matching f and returns how many were
// deleted. An empty filter is rejected with ErrEmptyFilter.
func (s *SQLite) DeleteStories(ctx context.Context, f StoryFilter) (int64, error) {
	if f.IsEmpty() {
		return 0, ErrEmptyFilter
	}

	d := sq.Delete("stories")
	if !f.ProcessedBefore.IsZero() {
		d = d.Where(sq.Lt{"processed_at": formatTime(f.ProcessedBefore)})
	}
	if len(f.Categories) > 0 {
		cats := make([]string, len(f.Categories))
		for i, c := range f.Categories {
			cats[i] = string(c)
		}
		d = d.Where(sq.Eq{"category": cats})
	}

	query, args, err := d.ToSql()
	if err != nil {
		return 0, fmt.Errorf("building delete: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting stories: %w", err)
	}
	return res.RowsAffected()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
