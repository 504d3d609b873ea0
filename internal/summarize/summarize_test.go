// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/goodnews-engine/internal/httputil"
	"github.com/pdiddy/goodnews-engine/pkg/types"
)

func TestContentHash(t *testing.T) {
	h := ContentHash("title", "body", published)
	assert.Len(t, h, 64)
	assert.Equal(t, h, ContentHash("title", "body", published.In(time.FixedZone("PST", -8*3600))))
	assert.NotEqual(t, h, ContentHash("title", "body!", published))
	assert.NotEqual(t, h, ContentHash("title", "body", time.Time{}))
	assert.NotEqual(t, ContentHash("a\nb", "c", time.Time{}), ContentHash("a", "b\nc", published))
}

func TestKeyForUsesBody(t *testing.T) {
	a := accepted(1)[0]
	k := KeyFor(a)
	assert.Equal(t, a.URL, k.URL)
	assert.Equal(t, ContentHash(a.Title, a.Description, a.PublishedAt), k.Hash)

	a.Content = "full text"
	assert.Equal(t, ContentHash(a.Title, "full text", a.PublishedAt), KeyFor(a).Hash)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", TruncateRunes("héllo", 4))
	assert.Equal(t, "héllo", TruncateRunes("héllo", 5))
	assert.Equal(t, "héllo", TruncateRunes("héllo", 0))
	assert.Equal(t, "hé...", TruncateSummary("héllo", 2))
	assert.Equal(t, "héllo", TruncateSummary("héllo", 10))
}

// --- Cohere adapter ---

func TestNewCohereRequiresKey(t *testing.T) {
	_, err := NewCohere(types.AIConfig{Model: "command-r"}, nil, "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCohereSummarize(t *testing.T) {
	var got map[string]any
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text":"A park opened for everyone.","generation_id":"g1","response_id":"r1"}`)
	}))
	defer ts.Close()

	c, err := NewCohere(types.AIConfig{APIKey: "k", Model: "command-r"}, ts.Client(), ts.URL)
	require.NoError(t, err)

	s, err := c.Summarize(context.Background(), "Park opens", "The town opened a park.")
	require.NoError(t, err)
	assert.Equal(t, "A park opened for everyone.", s)
	assert.Equal(t, "Bearer k", auth)
	assert.Equal(t, "command-r", got["model"])
	assert.Contains(t, got["message"], "Park opens")
}

func TestCohereRateLimitIsTransient(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"message":"rate limited"}`)
	}))
	defer ts.Close()

	c, err := NewCohere(types.AIConfig{APIKey: "k"}, ts.Client(), ts.URL)
	require.NoError(t, err)

	_, err = c.Summarize(context.Background(), "t", "b")
	require.Error(t, err)
	assert.True(t, httputil.IsTransient(err))
	assert.Equal(t, 1, calls, "the SDK does not retry on its own")
}
