// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/core"
	"github.com/cohere-ai/cohere-go/v2/option"

	"github.com/pdiddy/goodnews-engine/internal/httputil"
	"github.com/pdiddy/goodnews-engine/pkg/types"
)

// preamble instructs the model for every summary request.
const preamble = "You summarize news articles for a good-news digest. " +
	"Write two or three plain sentences stating what happened and who benefits. " +
	"Do not add opinions, headings, or information that is not in the article."

// Cohere summarizes articles with the Cohere chat API.
type Cohere struct {
	client *cohereclient.Client
	model  string
}

// NewCohere returns a Cohere summarizer. It returns ErrNotConfigured when
// cfg has no API key. baseURL overrides the API host when non-empty.
func NewCohere(cfg types.AIConfig, httpClient *http.Client, baseURL string) (*Cohere, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	opts := []option.RequestOption{
		cohereclient.WithToken(cfg.APIKey),
		cohereclient.WithHTTPClient(httpClient),
	}
	if baseURL != "" {
		opts = append(opts, cohereclient.WithBaseURL(baseURL))
	}
	model := cfg.Model
	if model == "" {
		model = "command-r"
	}
	return &Cohere{client: cohereclient.NewClient(opts...), model: model}, nil
}

// Summarize asks the model for a short summary of one article. Rate
// limiting is reported as *httputil.StatusError so callers can retry it.
func (c *Cohere) Summarize(ctx context.Context, title, body string) (string, error) {
	resp, err := c.client.Chat(ctx, &cohere.ChatRequest{
		Message:  "Title: " + title + "\n\n" + body,
		Model:    &c.model,
		Preamble: cohere.String(preamble),
	}, option.WithMaxAttempts(1))
	if err != nil {
		return "", wrapCohereError(err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", errors.New("cohere returned an empty summary")
	}
	return resp.Text, nil
}

// wrapCohereError converts SDK API errors into *httputil.StatusError and
// keeps transport errors as they are.
func wrapCohereError(err error) error {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("cohere chat: %w", &httputil.StatusError{
			Service:    "cohere",
			StatusCode: apiErr.StatusCode,
			Body:       apiErr.Error(),
		})
	}
	return fmt.Errorf("cohere chat: %w", err)
}
