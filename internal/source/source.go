// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source fetches raw articles from the primary search API and from
// per-outlet feeds, and merges them into a deduplicated set.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

// SearchRequest holds the parameters passed to a primary search adapter.
type SearchRequest struct {
	Query    string
	Domains  []string
	Since    time.Time
	PageSize int
	SortBy   string
	MaxPages int
}

// Searcher is the primary bulk-search capability.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) ([]types.RawArticle, error)
}

// OutletFetcher reads recent articles for a single outlet domain.
type OutletFetcher interface {
	FetchOutlet(ctx context.Context, domain string, since time.Time) ([]types.RawArticle, error)
}

// ErrUnknownOutlet is returned by FetchOutlet for a domain with no feeds.
var ErrUnknownOutlet = errors.New("no feeds configured for outlet")
