// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

const storiesCollection = "stories"

// Mongo stores stories in a MongoDB collection keyed by url.
type Mongo struct {
	client    *mongo.Client
	coll      *mongo.Collection
	batchSize int
}

// NewMongo connects to cfg.MongoURI and ensures the story indexes.
func NewMongo(ctx context.Context, cfg types.StoreConfig) (*Mongo, error) {
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("mongo store requires a URI")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	dbName := cfg.MongoDatabase
	if dbName == "" {
		dbName = "goodnews"
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	m := &Mongo{
		client:    client,
		coll:      client.Database(dbName).Collection(storiesCollection),
		batchSize: batch,
	}
	if err := m.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "url", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "processed_at", Value: -1}, {Key: "score", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "category", Value: 1}},
		},
	}
	if _, err := m.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// Ping checks the server connection.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// storyDoc is the BSON shape of a StoredStory.
type storyDoc struct {
	URL         string     `bson:"url"`
	Title       string     `bson:"title"`
	Description string     `bson:"description,omitempty"`
	Content     string     `bson:"content,omitempty"`
	ImageURL    string     `bson:"image_url,omitempty"`
	SourceName  string     `bson:"source_name,omitempty"`
	Domain      string     `bson:"domain,omitempty"`
	PublishedAt *time.Time `bson:"published_at,omitempty"`
	Fingerprint string     `bson:"fingerprint"`
	Provider    string     `bson:"provider"`
	Category    string     `bson:"category"`
	Score       float64    `bson:"score"`
	Impact      string     `bson:"impact"`
	Tags        []string   `bson:"tags"`
	Accept      bool       `bson:"accept"`
	Summary     string     `bson:"summary,omitempty"`
	Trending    bool       `bson:"trending"`
	ProcessedAt time.Time  `bson:"processed_at"`
}

func toDoc(st types.StoredStory) storyDoc {
	d := storyDoc{
		URL:         st.URL,
		Title:       st.Title,
		Description: st.Description,
		Content:     st.Content,
		ImageURL:    st.ImageURL,
		SourceName:  st.SourceName,
		Domain:      st.Domain,
		Fingerprint: st.Fingerprint,
		Provider:    string(st.Provider),
		Category:    string(st.Category),
		Score:       st.Score,
		Impact:      string(st.Impact),
		Tags:        st.Tags,
		Accept:      st.Accept,
		Summary:     st.Summary,
		Trending:    st.Trending,
		ProcessedAt: st.ProcessedAt.UTC(),
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	if !st.PublishedAt.IsZero() {
		p := st.PublishedAt.UTC()
		d.PublishedAt = &p
	}
	return d
}

func fromDoc(d storyDoc) types.StoredStory {
	st := types.StoredStory{
		Summary:     d.Summary,
		Trending:    d.Trending,
		ProcessedAt: d.ProcessedAt.UTC(),
	}
	st.URL = d.URL
	st.Title = d.Title
	st.Description = d.Description
	st.Content = d.Content
	st.ImageURL = d.ImageURL
	st.SourceName = d.SourceName
	st.Domain = d.Domain
	st.Fingerprint = d.Fingerprint
	st.Provider = types.Provider(d.Provider)
	st.Category = types.Category(d.Category)
	st.Score = d.Score
	st.Impact = types.ImpactTier(d.Impact)
	st.Tags = d.Tags
	st.Accept = d.Accept
	if d.PublishedAt != nil {
		st.PublishedAt = d.PublishedAt.UTC()
	}
	return st
}

// upsertModel updates every field except trending; a new document starts
// with trending false. Empty fields are written too, so a re-upsert clears
// values the new version no longer carries.
func upsertModel(st types.StoredStory) mongo.WriteModel {
	d := toDoc(st)
	set := bson.M{
		"url":          d.URL,
		"title":        d.Title,
		"description":  d.Description,
		"content":      d.Content,
		"image_url":    d.ImageURL,
		"source_name":  d.SourceName,
		"domain":       d.Domain,
		"published_at": d.PublishedAt,
		"fingerprint":  d.Fingerprint,
		"provider":     d.Provider,
		"category":     d.Category,
		"score":        d.Score,
		"impact":       d.Impact,
		"tags":         d.Tags,
		"accept":       d.Accept,
		"summary":      d.Summary,
		"processed_at": d.ProcessedAt,
	}

	return mongo.NewUpdateOneModel().
		SetFilter(bson.M{"url": st.URL}).
		SetUpdate(bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"trending": false},
		}).
		SetUpsert(true)
}

// UpsertStories bulk-writes stories in chunks of the configured batch size.
func (m *Mongo) UpsertStories(ctx context.Context, stories []types.StoredStory) error {
	for i, c := range chunk(stories, m.batchSize) {
		models := make([]mongo.WriteModel, len(c))
		for j, st := range c {
			models[j] = upsertModel(st)
		}
		if _, err := m.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
			return fmt.Errorf("upserting chunk %d: %w", i, err)
		}
	}
	return nil
}

func listFilter(opts ListOptions) bson.M {
	f := bson.M{}
	if opts.Category != "" {
		f["category"] = string(opts.Category)
	}
	if opts.TrendingOnly {
		f["trending"] = true
	}
	if !opts.Since.IsZero() {
		f["processed_at"] = bson.M{"$gte": opts.Since.UTC()}
	}
	return f
}

// ListStories returns stories matching opts, newest processed first.
func (m *Mongo) ListStories(ctx context.Context, opts ListOptions) ([]types.StoredStory, error) {
	findOpts := options.Find().SetSort(bson.D{
		{Key: "processed_at", Value: -1},
		{Key: "score", Value: -1},
		{Key: "url", Value: 1},
	})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cur, err := m.coll.Find(ctx, listFilter(opts), findOpts)
	if err != nil {
		return nil, fmt.Errorf("querying stories: %w", err)
	}
	defer cur.Close(ctx)

	var docs []storyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding stories: %w", err)
	}
	out := make([]types.StoredStory, len(docs))
	for i, d := range docs {
		out[i] = fromDoc(d)
	}
	return out, nil
}

func trendingFilter(opts TrendingOptions) bson.M {
	f := bson.M{
		"accept": true,
		"impact": bson.M{"$in": impactsAtLeast(opts.MinImpact)},
	}
	if !opts.Since.IsZero() {
		f["processed_at"] = bson.M{"$gte": opts.Since.UTC()}
	}
	return f
}

// UpdateTrending clears every trending flag and sets it on the stories
// selected by opts.
func (m *Mongo) UpdateTrending(ctx context.Context, opts TrendingOptions) (int, error) {
	if _, err := m.coll.UpdateMany(ctx, bson.M{"trending": true}, bson.M{"$set": bson.M{"trending": false}}); err != nil {
		return 0, fmt.Errorf("clearing trending: %w", err)
	}
	if opts.Limit <= 0 {
		return 0, nil
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "score", Value: -1}, {Key: "published_at", Value: -1}, {Key: "url", Value: 1}}).
		SetLimit(int64(opts.Limit)).
		SetProjection(bson.M{"url": 1})
	cur, err := m.coll.Find(ctx, trendingFilter(opts), findOpts)
	if err != nil {
		return 0, fmt.Errorf("selecting trending: %w", err)
	}
	var picked []struct {
		URL string `bson:"url"`
	}
	if err := cur.All(ctx, &picked); err != nil {
		return 0, fmt.Errorf("decoding trending: %w", err)
	}
	if len(picked) == 0 {
		return 0, nil
	}

	urls := make([]string, len(picked))
	for i, p := range picked {
		urls[i] = p.URL
	}
	res, err := m.coll.UpdateMany(ctx, bson.M{"url": bson.M{"$in": urls}}, bson.M{"$set": bson.M{"trending": true}})
	if err != nil {
		return 0, fmt.Errorf("setting trending: %w", err)
	}
	return int(res.ModifiedCount), nil
}

func deleteFilter(f StoryFilter) bson.M {
	out := bson.M{}
	if !f.ProcessedBefore.IsZero() {
		out["processed_at"] = bson.M{"$lt": f.ProcessedBefore.UTC()}
	}
	if len(f.Categories) > 0 {
		cats := make([]string, len(f.Categories))
		for i, c := range f.Categories {
			cats[i] = string(c)
		}
		out["category"] = bson.M{"$in": cats}
	}
	return out
}

// DeleteStories removes stories matching f.
func (m *Mongo) DeleteStories(ctx context.Context, f StoryFilter) (int64, error) {
	if f.IsEmpty() {
		return 0, ErrEmptyFilter
	}
	res, err := m.coll.DeleteMany(ctx, deleteFilter(f))
	if err != nil {
		return 0, fmt.Errorf("deleting stories: %w", err)
	}
	return res.DeletedCount, nil
}
