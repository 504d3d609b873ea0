// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/goodnews-engine/internal/httputil"
	"github.com/pdiddy/goodnews-engine/pkg/types"
)

// newsAPIMaxPageSize is the largest pageSize the API accepts.
const newsAPIMaxPageSize = 100

// removedMarker is the placeholder NewsAPI returns for retracted articles.
const removedMarker = "[Removed]"

// truncatedSuffix matches the "… [+1234 chars]" tail NewsAPI appends to content.
var truncatedSuffix = regexp.MustCompile(`\s*(…|\.\.\.)?\s*\[\+\d+ chars\]\s*$`)

// NewsAPI searches the NewsAPI "everything" endpoint.
type NewsAPI struct {
	Client *http.Client
	Config types.NewsAPIConfig
	Logger zerolog.Logger
}

// NewNewsAPI returns an adapter using cfg. A nil client gets one with
// cfg.Timeout.
func NewNewsAPI(cfg types.NewsAPIConfig, client *http.Client, logger zerolog.Logger) *NewsAPI {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &NewsAPI{Client: client, Config: cfg, Logger: logger}
}

// Search fetches up to req.MaxPages pages. A failure on the first page is
// returned; a failure on a later page ends paging and keeps what was read.
func (n *NewsAPI) Search(ctx context.Context, req SearchRequest) ([]types.RawArticle, error) {
	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > newsAPIMaxPageSize {
		pageSize = newsAPIMaxPageSize
	}
	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	var out []types.RawArticle
	for page := 1; page <= maxPages; page++ {
		resp, err := n.fetchPage(ctx, req, pageSize, page)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			n.Logger.Warn().Err(err).Int("page", page).Str("query", req.Query).Msg("newsapi paging stopped")
			break
		}

		for _, a := range resp.Articles {
			if a.Title == removedMarker || a.URL == "" {
				continue
			}
			out = append(out, mapNewsAPIArticle(a))
		}

		if len(resp.Articles) < pageSize || page*pageSize >= resp.TotalResults {
			break
		}
	}
	return out, nil
}

func (n *NewsAPI) fetchPage(ctx context.Context, req SearchRequest, pageSize, page int) (newsAPIResponse, error) {
	params := url.Values{
		"pageSize": {strconv.Itoa(pageSize)},
		"page":     {strconv.Itoa(page)},
	}
	if req.Query != "" {
		params.Set("q", req.Query)
	}
	if len(req.Domains) > 0 {
		params.Set("domains", strings.Join(req.Domains, ","))
	}
	if !req.Since.IsZero() {
		params.Set("from", req.Since.UTC().Format(time.RFC3339))
	}
	if req.SortBy != "" {
		params.Set("sortBy", req.SortBy)
	}
	if n.Config.Language != "" {
		params.Set("language", n.Config.Language)
	}

	reqURL := n.Config.BaseURL + "?" + params.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return newsAPIResponse{}, fmt.Errorf("creating request: %w", err)
	}
	if n.Config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", n.Config.UserAgent)
	}
	httpReq.Header.Set("X-Api-Key", n.Config.APIKey)

	resp, err := n.Client.Do(httpReq)
	if err != nil {
		return newsAPIResponse{}, fmt.Errorf("newsapi request: %w", err)
	}
	if err := httputil.CheckResponse("newsapi", resp); err != nil {
		return newsAPIResponse{}, err
	}
	defer resp.Body.Close()

	var nr newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&nr); err != nil {
		return newsAPIResponse{}, fmt.Errorf("parsing newsapi response: %w", err)
	}
	if nr.Status != "" && nr.Status != "ok" {
		return newsAPIResponse{}, fmt.Errorf("newsapi error %s: %s", nr.Code, nr.Message)
	}
	return nr, nil
}

// mapNewsAPIArticle converts one wire article into a RawArticle.
func mapNewsAPIArticle(a newsAPIArticle) types.RawArticle {
	r := types.RawArticle{
		Provider:    types.ProviderSearch,
		Title:       a.Title,
		Description: a.Description,
		Content:     truncatedSuffix.ReplaceAllString(a.Content, ""),
		URL:         a.URL,
		ImageURL:    a.URLToImage,
		SourceID:    a.Source.ID,
		SourceName:  a.Source.Name,
	}
	if a.PublishedAt != "" {
		if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
			r.PublishedAt = t
		}
	}
	return r
}

// NewsAPI JSON structures.
type newsAPIResponse struct {
	Status       string           `json:"status"`
	Code         string           `json:"code"`
	Message      string           `json:"message"`
	TotalResults int              `json:"totalResults"`
	Articles     []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}
