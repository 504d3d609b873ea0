// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

// extractMinChars is the content length above which feed HTML is run
// through readability instead of being stripped directly.
const extractMinChars = 600

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

// RSS fetches outlet feeds with gofeed. Each domain maps to one or more
// feed URLs in Config.Outlets.
type RSS struct {
	Client *http.Client
	Config types.FeedsConfig
	Logger zerolog.Logger
}

// NewRSS returns a feed fetcher using cfg. A nil client gets one with
// cfg.Timeout.
func NewRSS(cfg types.FeedsConfig, client *http.Client, logger zerolog.Logger) *RSS {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &RSS{Client: client, Config: cfg, Logger: logger}
}

// Domains lists the outlets with configured feeds.
func (r *RSS) Domains() []string {
	out := make([]string, 0, len(r.Config.Outlets))
	for d := range r.Config.Outlets {
		out = append(out, d)
	}
	return out
}

// FetchOutlet reads every feed configured for domain and returns the items
// published at or after since. Items without a publish time are kept. An
// error is returned only when every feed for the domain failed.
func (r *RSS) FetchOutlet(ctx context.Context, domain string, since time.Time) ([]types.RawArticle, error) {
	feeds := r.Config.Outlets[domain]
	if len(feeds) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOutlet, domain)
	}

	var out []types.RawArticle
	var errs []error
	for _, feedURL := range feeds {
		items, err := r.fetchFeed(ctx, feedURL, since)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", feedURL, err))
			continue
		}
		out = append(out, items...)
	}
	if len(errs) == len(feeds) {
		return nil, errors.Join(errs...)
	}
	for _, err := range errs {
		r.Logger.Warn().Err(err).Str("domain", domain).Msg("feed skipped")
	}
	return out, nil
}

func (r *RSS) fetchFeed(ctx context.Context, feedURL string, since time.Time) ([]types.RawArticle, error) {
	parser := gofeed.NewParser()
	parser.Client = r.Client
	if r.Config.UserAgent != "" {
		parser.UserAgent = r.Config.UserAgent
	}

	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	limit := len(feed.Items)
	if r.Config.MaxItems > 0 && limit > r.Config.MaxItems {
		limit = r.Config.MaxItems
	}

	out := make([]types.RawArticle, 0, limit)
	for _, item := range feed.Items[:limit] {
		if item == nil {
			continue
		}
		a := mapFeedItem(item, feed.Title)
		if !since.IsZero() && !a.PublishedAt.IsZero() && a.PublishedAt.Before(since) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// mapFeedItem converts one gofeed item into a RawArticle.
func mapFeedItem(item *gofeed.Item, feedTitle string) types.RawArticle {
	a := types.RawArticle{
		Provider:    types.ProviderFeed,
		Title:       item.Title,
		Description: item.Description,
		URL:         item.Link,
		ImageURL:    feedImage(item),
		SourceID:    item.GUID,
		SourceName:  feedTitle,
	}
	if a.URL == "" && len(item.Links) > 0 {
		a.URL = item.Links[0]
	}

	switch {
	case item.PublishedParsed != nil:
		a.PublishedAt = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		a.PublishedAt = *item.UpdatedParsed
	}

	content, leadImage := extractContent(item.Content, a.URL)
	a.Content = content
	if a.ImageURL == "" {
		a.ImageURL = leadImage
	}
	return a
}

// feedImage returns the first image reference on the item: the item image,
// an image enclosure, then media:content or media:thumbnail.
func feedImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "image/") || hasImageExt(enc.URL) {
			return enc.URL
		}
	}
	if media, ok := item.Extensions["media"]; ok {
		for _, name := range []string{"content", "thumbnail"} {
			for _, e := range media[name] {
				u := e.Attrs["url"]
				if u == "" {
					continue
				}
				if medium := e.Attrs["medium"]; medium != "" && medium != "image" {
					continue
				}
				return u
			}
		}
	}
	return ""
}

func hasImageExt(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return imageExts[strings.ToLower(path.Ext(u.Path))]
}

// extractContent reduces long feed HTML to readable text with readability.
// Short or unparseable content is returned unchanged for the canonicalizer
// to strip. The second value is the lead image readability found, if any.
func extractContent(html, link string) (string, string) {
	if len(html) < extractMinChars || !strings.Contains(html, "<") {
		return html, ""
	}
	pageURL, err := url.Parse(link)
	if err != nil {
		return html, ""
	}
	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil || strings.TrimSpace(article.TextContent) == "" {
		return html, ""
	}
	return article.TextContent, article.Image
}
