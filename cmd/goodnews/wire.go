// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/rs/zerolog"

	"github.com/pdiddy/goodnews-engine/internal/cache"
	"github.com/pdiddy/goodnews-engine/internal/pipeline"
	"github.com/pdiddy/goodnews-engine/internal/publish"
	"github.com/pdiddy/goodnews-engine/internal/server"
	"github.com/pdiddy/goodnews-engine/internal/source"
	"github.com/pdiddy/goodnews-engine/internal/store"
	"github.com/pdiddy/goodnews-engine/internal/summarize"
	"github.com/pdiddy/goodnews-engine/pkg/types"
)

// storyStore is what the CLI needs from a story backend.
type storyStore interface {
	pipeline.StoryStore
	pipeline.Maintainer
	server.StoryLister
	server.Pinger
}

// summaryCache is what the CLI needs from a summary cache backend.
type summaryCache interface {
	summarize.Cache
	pipeline.CacheSweeper
	server.Pinger
}

// app owns every long-lived client for one command invocation. close
// releases them in reverse order of creation.
type app struct {
	cfg    types.Config
	logger zerolog.Logger

	sqlite   *store.SQLite
	stories  storyStore
	cache    summaryCache
	pipeline *pipeline.Pipeline
	checks   map[string]server.Pinger

	closers []func() error
}

type appOptions struct {
	// sources builds the search adapters; run and serve need them.
	sources bool
}

func newApp(ctx context.Context, cfg types.Config, logger zerolog.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger, checks: map[string]server.Pinger{}}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	if err := a.openStores(ctx); err != nil {
		return nil, err
	}

	p := &pipeline.Pipeline{
		Config:     cfg.Pipeline,
		Store:      a.stories,
		Maintainer: a.stories,
		Cache:      a.cache,
		Logger:     logger.With().Str("component", "pipeline").Logger(),
	}

	if opts.sources {
		if cfg.NewsAPI.APIKey == "" {
			return nil, fmt.Errorf("newsapi api key is required: set newsapi.api_key, GOODNEWS_NEWSAPI_API_KEY or .secrets/newsapi-api-key")
		}
		p.Sources = a.bridge()
		p.Summarizer = a.batcher()
		p.Publisher = a.publisher()
		if len(p.Config.Domains) == 0 {
			p.Config.Domains = outletDomains(cfg.Feeds)
		}
	}

	a.pipeline = p
	ok = true
	return a, nil
}

func (a *app) openStores(ctx context.Context) error {
	sqlite, err := store.NewSQLite(a.cfg.Store)
	if err != nil {
		return err
	}
	a.sqlite = sqlite
	a.closers = append(a.closers, sqlite.Close)
	a.stories = sqlite
	a.cache = sqlite

	switch a.cfg.Store.Driver {
	case types.StoreMongo:
		m, err := store.NewMongo(ctx, a.cfg.Store)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, m.Close)
		a.stories = m
		a.logger.Info().Str("database", a.cfg.Store.MongoDatabase).Msg("using mongo story store")
	case types.StoreSQLite, "":
	default:
		return fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}
	a.checks["store"] = a.stories

	if a.cfg.Cache.RedisAddr != "" {
		r, err := cache.NewRedis(ctx, a.cfg.Cache)
		if err != nil {
			a.logger.Warn().Err(err).Msg("redis unavailable, keeping summary cache in sqlite")
		} else {
			a.closers = append(a.closers, r.Close)
			a.cache = r
			a.logger.Info().Str("addr", a.cfg.Cache.RedisAddr).Msg("using redis summary cache")
		}
	}
	a.checks["cache"] = a.cache
	return nil
}

func (a *app) bridge() *source.Bridge {
	news := source.NewNewsAPI(a.cfg.NewsAPI, newHTTPClient(a.cfg.NewsAPI.HTTPConfig), a.logger.With().Str("component", "newsapi").Logger())
	rss := source.NewRSS(a.cfg.Feeds, newHTTPClient(a.cfg.Feeds.HTTPConfig), a.logger.With().Str("component", "rss").Logger())
	return &source.Bridge{
		Primary:           news,
		Outlets:           rss,
		OutletConcurrency: a.cfg.Feeds.Concurrency,
		OutletTimeout:     a.cfg.Feeds.Timeout,
		Logger:            a.logger.With().Str("component", "bridge").Logger(),
	}
}

func (a *app) batcher() *summarize.Batcher {
	log := a.logger.With().Str("component", "summarize").Logger()

	var s summarize.Summarizer
	c, err := summarize.NewCohere(a.cfg.Summarize.AIConfig, nil, "")
	switch {
	case errors.Is(err, summarize.ErrNotConfigured):
		log.Warn().Msg("no cohere api key, stories will be stored without summaries")
	case err != nil:
		log.Warn().Err(err).Msg("cohere client unavailable, stories will be stored without summaries")
	default:
		s = c
	}

	return summarize.NewBatcher(a.cfg.Summarize, s, a.cache, log)
}

func (a *app) publisher() pipeline.Publisher {
	if a.cfg.Publish.NATSURL == "" {
		return nil
	}
	n, err := publish.NewNATS(a.cfg.Publish, a.logger.With().Str("component", "publish").Logger())
	if err != nil {
		a.logger.Warn().Err(err).Msg("nats unavailable, run notifications disabled")
		return nil
	}
	a.closers = append(a.closers, n.Close)
	return n
}

func outletDomains(cfg types.FeedsConfig) []string {
	out := make([]string, 0, len(cfg.Outlets))
	for d := range cfg.Outlets {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// server builds the HTTP surface over the app's stores and pipeline.
func (a *app) server(runCtx context.Context) *server.Server {
	return &server.Server{
		Stories:    a.stories,
		Checks:     a.checks,
		Runner:     a.pipeline,
		Logger:     a.logger.With().Str("component", "http").Logger(),
		RunContext: runCtx,
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("closing resource")
		}
	}
	a.closers = nil
}

func newHTTPClient(cfg types.HTTPConfig) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}
