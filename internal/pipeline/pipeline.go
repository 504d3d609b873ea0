// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates one ingestion run: search every topic,
// deduplicate across queries, classify, summarize accepted stories, and
// persist them. It also runs the maintenance sweep that keeps the
// trending flag and retention current.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/goodnews-engine/internal/classify"
	"github.com/pdiddy/goodnews-engine/internal/metrics"
	"github.com/pdiddy/goodnews-engine/internal/source"
	"github.com/pdiddy/goodnews-engine/internal/store"
	"github.com/pdiddy/goodnews-engine/pkg/types"
)

// ErrRunInProgress is returned when Run or Maintain is called while
// another run holds the pipeline.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// Searcher runs one smart search; source.Bridge implements it.
type Searcher interface {
	SearchSmart(ctx context.Context, q source.SmartQuery) ([]types.CanonicalArticle, error)
}

// Summarizer returns one summary per article, aligned by index.
type Summarizer interface {
	SummarizeAccepted(ctx context.Context, articles []types.ClassifiedArticle) []string
}

// StoryStore persists stories.
type StoryStore interface {
	UpsertStories(ctx context.Context, stories []types.StoredStory) error
}

// Maintainer owns the trending flag and story retention.
type Maintainer interface {
	UpdateTrending(ctx context.Context, opts store.TrendingOptions) (int, error)
	DeleteStories(ctx context.Context, f store.StoryFilter) (int64, error)
}

// CacheSweeper deletes expired summary cache entries.
type CacheSweeper interface {
	DeleteCacheOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Publisher announces the stories stored by a run.
type Publisher interface {
	PublishStories(ctx context.Context, runID string, stories []types.StoredStory) error
}

// Pipeline wires the stages together. Sources and Store are required;
// Summarizer, Maintainer, Cache and Publisher are optional.
type Pipeline struct {
	Config     types.PipelineConfig
	Sources    Searcher
	Summarizer Summarizer
	Store      StoryStore
	Maintainer Maintainer
	Cache      CacheSweeper
	Publisher  Publisher
	Logger     zerolog.Logger

	// Now returns the current time; nil uses time.Now.
	Now func() time.Time

	mu    sync.Mutex
	state atomic.Int32
}

// Report summarizes one Run.
type Report struct {
	RunID       string        `json:"run_id"`
	Mode        Mode          `json:"mode"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Queries     int           `json:"queries"`
	QueryErrors int           `json:"query_errors"`
	Fetched     int           `json:"fetched"`
	Unique      int           `json:"unique"`
	Accepted    int           `json:"accepted"`
	Rejected    int           `json:"rejected"`
	Summarized  int           `json:"summarized"`
	Stored      int           `json:"stored"`
	Published   bool          `json:"published"`
}

// State returns the stage the pipeline is currently in.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

func (p *Pipeline) enter(s State, runID string) {
	p.state.Store(int32(s))
	p.Logger.Debug().Str("run_id", runID).Stringer("state", s).Msg("state transition")
}

// Run executes one ingestion pass in the given mode. Search failures are
// logged and skipped; only a store failure aborts the run.
func (p *Pipeline) Run(ctx context.Context, mode Mode) (Report, error) {
	params, err := mode.params(p.Config)
	if err != nil {
		return Report{}, err
	}
	if p.Sources == nil || p.Store == nil {
		return Report{}, fmt.Errorf("pipeline requires a searcher and a store")
	}
	if !p.mu.TryLock() {
		return Report{}, ErrRunInProgress
	}
	defer p.mu.Unlock()

	start := p.now()
	rep := Report{RunID: uuid.NewString(), Mode: mode, StartedAt: start}
	log := p.Logger.With().Str("run_id", rep.RunID).Str("mode", string(mode)).Logger()
	log.Info().Int("topics", len(p.Config.Topics)).Msg("run started")

	defer p.enter(StateIdle, rep.RunID)

	err = p.run(ctx, log, params, &rep)
	rep.Duration = p.now().Sub(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RunDuration.WithLabelValues(string(mode), status).Observe(rep.Duration.Seconds())

	if err != nil {
		log.Error().Err(err).Msg("run failed")
		return rep, err
	}
	log.Info().
		Int("fetched", rep.Fetched).
		Int("unique", rep.Unique).
		Int("accepted", rep.Accepted).
		Int("rejected", rep.Rejected).
		Int("summarized", rep.Summarized).
		Int("stored", rep.Stored).
		Dur("duration", rep.Duration).
		Msg("run complete")
	return rep, nil
}

func (p *Pipeline) run(ctx context.Context, log zerolog.Logger, params types.ModeConfig, rep *Report) error {
	p.enter(StateQueryingSources, rep.RunID)
	fetched := p.querySources(ctx, log, params, rep)

	p.enter(StateDeduplicating, rep.RunID)
	unique := dedupeAcrossQueries(fetched)
	rep.Unique = len(unique)

	p.enter(StateClassifying, rep.RunID)
	accepted := p.classifyAll(unique, rep)

	p.enter(StateSummarizing, rep.RunID)
	summaries := p.summarize(ctx, accepted)

	p.enter(StatePersisting, rep.RunID)
	processed := p.now()
	stories := make([]types.StoredStory, len(accepted))
	for i, a := range accepted {
		stories[i] = types.StoredStory{
			ClassifiedArticle: a,
			Summary:           summaries[i],
			ProcessedAt:       processed,
		}
		if summaries[i] != "" {
			rep.Summarized++
		}
	}
	if len(stories) > 0 {
		if err := p.Store.UpsertStories(ctx, stories); err != nil {
			return fmt.Errorf("persisting stories: %w", err)
		}
	}
	rep.Stored = len(stories)
	metrics.StoriesStored.Add(float64(len(stories)))

	if p.Publisher != nil && len(stories) > 0 {
		if err := p.Publisher.PublishStories(ctx, rep.RunID, stories); err != nil {
			log.Warn().Err(err).Msg("publishing run notification")
		} else {
			rep.Published = true
		}
	}
	return nil
}

func (p *Pipeline) querySources(ctx context.Context, log zerolog.Logger, params types.ModeConfig, rep *Report) []types.CanonicalArticle {
	since := p.now().Add(-params.Window)
	var all []types.CanonicalArticle
	for _, topic := range p.Config.Topics {
		if ctx.Err() != nil {
			break
		}
		rep.Queries++
		articles, err := p.Sources.SearchSmart(ctx, source.SmartQuery{
			Query:    topic,
			Domains:  p.Config.Domains,
			Since:    since,
			PageSize: params.PageSize,
			SortBy:   p.Config.SortBy,
			MaxPages: params.MaxPages,
		})
		if err != nil {
			rep.QueryErrors++
			log.Warn().Err(err).Str("query", topic).Msg("query failed")
			continue
		}
		log.Debug().Str("query", topic).Int("articles", len(articles)).Msg("query complete")
		all = append(all, articles...)
	}
	rep.Fetched = len(all)
	return all
}

// dedupeAcrossQueries keeps the first article per lowercased title and
// url, preserving order.
func dedupeAcrossQueries(articles []types.CanonicalArticle) []types.CanonicalArticle {
	seen := make(map[string]bool, len(articles))
	out := make([]types.CanonicalArticle, 0, len(articles))
	for _, a := range articles {
		key := strings.ToLower(a.Title) + "|" + a.URL
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

func (p *Pipeline) classifyAll(articles []types.CanonicalArticle, rep *Report) []types.ClassifiedArticle {
	var accepted []types.ClassifiedArticle
	for _, a := range articles {
		c := classify.Article(a)
		if !c.Accept {
			rep.Rejected++
			metrics.Classified.WithLabelValues(string(c.Category), "reject").Inc()
			continue
		}
		metrics.Classified.WithLabelValues(string(c.Category), "accept").Inc()
		accepted = append(accepted, c)
	}
	rep.Accepted = len(accepted)
	return accepted
}

func (p *Pipeline) summarize(ctx context.Context, accepted []types.ClassifiedArticle) []string {
	if p.Summarizer == nil || len(accepted) == 0 {
		return make([]string, len(accepted))
	}
	out := p.Summarizer.SummarizeAccepted(ctx, accepted)
	if len(out) != len(accepted) {
		aligned := make([]string, len(accepted))
		copy(aligned, out)
		return aligned
	}
	return out
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
