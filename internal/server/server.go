// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes health, readiness, Prometheus metrics and the
// stored stories over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pdiddy/goodnews-engine/internal/metrics"
	"github.com/pdiddy/goodnews-engine/internal/pipeline"
	"github.com/pdiddy/goodnews-engine/internal/store"
	"github.com/pdiddy/goodnews-engine/pkg/types"
)

const (
	serviceName     = "goodnews-engine"
	defaultLimit    = 50
	maxLimit        = 200
	readyTimeout    = 2 * time.Second
	shutdownTimeout = 10 * time.Second
)

// StoryLister reads stored stories.
type StoryLister interface {
	ListStories(ctx context.Context, opts store.ListOptions) ([]types.StoredStory, error)
}

// Pinger is a dependency checked by /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Runner starts pipeline runs on demand.
type Runner interface {
	Run(ctx context.Context, mode pipeline.Mode) (pipeline.Report, error)
	State() pipeline.State
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	Stories StoryLister

	// Checks maps a dependency name to its readiness probe.
	Checks map[string]Pinger

	// Runner enables POST /api/runs/:mode when set.
	Runner Runner

	Logger zerolog.Logger

	// RunContext parents runs triggered over HTTP; nil uses Background.
	RunContext context.Context
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.observe())

	r.GET("/health", s.health)
	r.GET("/ready", s.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/stories", s.listStories)
		api.GET("/status", s.status)
		api.POST("/runs/:mode", s.triggerRun)
	}
	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// observe records request metrics and logs each request.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := c.Writer.Status()
		elapsed := time.Since(start)

		metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())

		s.Logger.Debug().
			Str("method", method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("http request")
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	checks := make(gin.H, len(s.Checks))
	ok := true
	for name, p := range s.Checks {
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			ok = false
			continue
		}
		checks[name] = "ok"
	}

	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
}

func (s *Server) listStories(c *gin.Context) {
	opts, err := parseListOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stories, err := s.Stories.ListStories(c.Request.Context(), opts)
	if err != nil {
		s.Logger.Error().Err(err).Msg("listing stories")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list stories"})
		return
	}
	if stories == nil {
		stories = []types.StoredStory{}
	}
	c.JSON(http.StatusOK, gin.H{"stories": stories, "count": len(stories)})
}

// parseListOptions reads category, trending, since (a duration such as
// "24h") and limit from the query string.
func parseListOptions(c *gin.Context) (store.ListOptions, error) {
	var opts store.ListOptions

	if cat := c.Query("category"); cat != "" {
		opts.Category = types.Category(cat)
		if !opts.Category.Valid() {
			return opts, fmt.Errorf("unknown category %q", cat)
		}
	}

	if v := c.Query("trending"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid trending %q", v)
		}
		opts.TrendingOnly = b
	}

	if v := c.Query("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return opts, fmt.Errorf("invalid since %q", v)
		}
		opts.Since = time.Now().Add(-d)
	}

	opts.Limit = defaultLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, fmt.Errorf("invalid limit %q", v)
		}
		opts.Limit = min(n, maxLimit)
	}
	return opts, nil
}

func (s *Server) status(c *gin.Context) {
	if s.Runner == nil {
		c.JSON(http.StatusOK, gin.H{"state": pipeline.StateIdle.String()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": s.Runner.State().String()})
}

func (s *Server) triggerRun(c *gin.Context) {
	if s.Runner == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "runs are not enabled"})
		return
	}
	mode, err := pipeline.ParseMode(c.Param("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.Runner.State() != pipeline.StateIdle {
		c.JSON(http.StatusConflict, gin.H{"error": pipeline.ErrRunInProgress.Error()})
		return
	}

	parent := s.RunContext
	if parent == nil {
		parent = context.Background()
	}
	go func() {
		_, err := s.Runner.Run(parent, mode)
		s.logTriggeredRun(mode, err)
	}()
	c.JSON(http.StatusAccepted, gin.H{"message": "run started", "mode": mode})
}

// logTriggeredRun reports the outcome of a background run. Losing the race
// to a scheduled run after the idle check is not a failure.
func (s *Server) logTriggeredRun(mode pipeline.Mode, err error) {
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrRunInProgress):
		s.Logger.Debug().Str("mode", string(mode)).Msg("triggered run skipped, run in progress")
	default:
		s.Logger.Error().Err(err).Str("mode", string(mode)).Msg("triggered run failed")
	}
}
