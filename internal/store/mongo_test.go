// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

func TestMongoDocMapping(t *testing.T) {
	st := story("https://example.com/a", types.CategoryLabor, 7, processed)
	st.Summary = "s"
	st.Trending = true

	d := toDoc(st)
	require.NotNil(t, d.PublishedAt)
	assert.Equal(t, "workers-rights", d.Category)

	back := fromDoc(d)
	assert.Equal(t, st.URL, back.URL)
	assert.Equal(t, st.Category, back.Category)
	assert.Equal(t, st.Impact, back.Impact)
	assert.Equal(t, st.Tags, back.Tags)
	assert.True(t, back.PublishedAt.Equal(st.PublishedAt))
	assert.True(t, back.Trending)
}

func TestMongoDocZeroPublished(t *testing.T) {
	st := story("https://example.com/a", types.CategoryGoodNews, 0, processed)
	st.PublishedAt = time.Time{}
	st.Tags = nil

	d := toDoc(st)
	assert.Nil(t, d.PublishedAt)
	assert.Equal(t, []string{}, d.Tags)
	assert.True(t, fromDoc(d).PublishedAt.IsZero())
}

func TestMongoUpsertModelLeavesTrending(t *testing.T) {
	st := story("https://example.com/a", types.CategoryHealth, 8, processed)
	st.Trending = true

	m, ok := upsertModel(st).(*mongo.UpdateOneModel)
	require.True(t, ok)
	assert.Equal(t, bson.M{"url": st.URL}, m.Filter)
	require.NotNil(t, m.Upsert)
	assert.True(t, *m.Upsert)

	update := m.Update.(bson.M)
	set := update["$set"].(bson.M)
	assert.NotContains(t, set, "trending")
	assert.Equal(t, st.URL, set["url"])
	assert.Equal(t, bson.M{"trending": false}, update["$setOnInsert"])
}

func TestMongoUpsertModelClearsEmptyFields(t *testing.T) {
	st := story("https://example.com/a", types.CategoryHealth, 8, processed)
	st.Summary = ""
	st.Description = ""
	st.ImageURL = ""
	st.PublishedAt = time.Time{}

	m, ok := upsertModel(st).(*mongo.UpdateOneModel)
	require.True(t, ok)
	set := m.Update.(bson.M)["$set"].(bson.M)

	for _, field := range []string{"summary", "description", "image_url", "content", "published_at"} {
		assert.Contains(t, set, field)
	}
	assert.Equal(t, "", set["summary"])
	assert.Equal(t, "", set["image_url"])
	assert.Nil(t, set["published_at"])
	assert.Equal(t, processed.UTC(), set["processed_at"])
}

func TestMongoFilters(t *testing.T) {
	since := processed.Add(-time.Hour)

	assert.Equal(t, bson.M{}, listFilter(ListOptions{}))
	assert.Equal(t, bson.M{
		"category":     "health",
		"trending":     true,
		"processed_at": bson.M{"$gte": since},
	}, listFilter(ListOptions{Category: types.CategoryHealth, TrendingOnly: true, Since: since}))

	assert.Equal(t, bson.M{
		"accept":       true,
		"impact":       bson.M{"$in": []string{"high", "medium"}},
		"processed_at": bson.M{"$gte": since},
	}, trendingFilter(TrendingOptions{Since: since, MinImpact: types.ImpactMedium}))

	assert.Equal(t, bson.M{
		"processed_at": bson.M{"$lt": since},
		"category":     bson.M{"$in": []string{"health", "science"}},
	}, deleteFilter(StoryFilter{
		ProcessedBefore: since,
		Categories:      []types.Category{types.CategoryHealth, types.CategoryScience},
	}))
}

func TestMongoDeleteRejectsEmptyFilter(t *testing.T) {
	m := &Mongo{}
	_, err := m.DeleteStories(context.Background(), StoryFilter{})
	assert.ErrorIs(t, err, ErrEmptyFilter)
}

func TestNewMongoRequiresURI(t *testing.T) {
	_, err := NewMongo(context.Background(), types.StoreConfig{})
	assert.Error(t, err)
}
