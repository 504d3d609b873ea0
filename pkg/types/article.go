// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the goodnews pipeline.
// Records flow RawArticle -> CanonicalArticle -> ClassifiedArticle ->
// StoredStory; summary cache entries sit beside the store.
package types

import "time"

// Provider tags the upstream shape a RawArticle was mapped from.
type Provider string

const (
	// ProviderSearch marks articles returned by the primary bulk search API.
	ProviderSearch Provider = "search"

	// ProviderFeed marks articles read from a per-outlet RSS or Atom feed.
	ProviderFeed Provider = "feed"
)

// RawArticle is the provider-neutral record an adapter produces from its
// own wire format. Every field except Provider is optional; a zero
// PublishedAt means the provider did not supply a timestamp.
type RawArticle struct {
	Provider    Provider  `json:"provider" yaml:"provider"`
	Title       string    `json:"title,omitempty" yaml:"title,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Content     string    `json:"content,omitempty" yaml:"content,omitempty"`
	URL         string    `json:"url,omitempty" yaml:"url,omitempty"`
	ImageURL    string    `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	SourceID    string    `json:"source_id,omitempty" yaml:"source_id,omitempty"`
	SourceName  string    `json:"source_name,omitempty" yaml:"source_name,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty" yaml:"published_at,omitempty"`
}

// HasImage reports whether the record carries a non-blank image reference.
func (r RawArticle) HasImage() bool {
	return hasText(r.ImageURL)
}

// CanonicalArticle is a normalized article with a stable identity.
type CanonicalArticle struct {
	// Title is the headline with whitespace collapsed.
	Title string `json:"title" yaml:"title"`

	// Description is the plain-text teaser (HTML stripped).
	Description string `json:"description" yaml:"description"`

	// Content is the longest plain-text body the provider supplied.
	Content string `json:"content,omitempty" yaml:"content,omitempty"`

	// URL is the article link with tracking parameters and fragment removed.
	URL string `json:"url" yaml:"url"`

	// ImageURL is the lead image, if any.
	ImageURL string `json:"image_url,omitempty" yaml:"image_url,omitempty"`

	// SourceName is the outlet name reported by the provider.
	SourceName string `json:"source_name" yaml:"source_name"`

	// Domain is the URL hostname without a leading "www.".
	Domain string `json:"domain" yaml:"domain"`

	// PublishedAt is the publication time; zero when unknown.
	PublishedAt time.Time `json:"published_at,omitempty" yaml:"published_at,omitempty"`

	// Fingerprint is the hex SHA-256 of domain, URL path and publish time.
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`

	// Provider records which adapter produced the article.
	Provider Provider `json:"provider" yaml:"provider"`
}

// HasImage reports whether the article carries a non-blank image reference.
func (a CanonicalArticle) HasImage() bool {
	return hasText(a.ImageURL)
}

// Body returns the text used for scoring and summarization: the content
// when present, otherwise the description.
func (a CanonicalArticle) Body() string {
	if hasText(a.Content) {
		return a.Content
	}
	return a.Description
}

// Category is one of the fixed classifier labels.
type Category string

const (
	CategoryLabor       Category = "workers-rights"
	CategoryHealth      Category = "health"
	CategoryEnvironment Category = "environment"
	CategoryScience     Category = "science"
	CategoryEducation   Category = "education"
	CategoryCommunity   Category = "community"
	CategoryJustice     Category = "justice"
	CategoryGoodNews    Category = "good-news"
)

// Categories lists every label in rubric order.
var Categories = []Category{
	CategoryLabor,
	CategoryHealth,
	CategoryEnvironment,
	CategoryScience,
	CategoryEducation,
	CategoryCommunity,
	CategoryJustice,
	CategoryGoodNews,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// ImpactTier is a coarse bucket derived from the positivity score.
type ImpactTier string

const (
	ImpactHigh    ImpactTier = "high"
	ImpactMedium  ImpactTier = "medium"
	ImpactLow     ImpactTier = "low"
	ImpactMinimal ImpactTier = "minimal"
)

// ImpactFor maps a score to its tier: >=8 high, >=6 medium, >=4 low.
func ImpactFor(score float64) ImpactTier {
	switch {
	case score >= 8:
		return ImpactHigh
	case score >= 6:
		return ImpactMedium
	case score >= 4:
		return ImpactLow
	default:
		return ImpactMinimal
	}
}

// Rank orders tiers from minimal (0) to high (3).
func (t ImpactTier) Rank() int {
	switch t {
	case ImpactHigh:
		return 3
	case ImpactMedium:
		return 2
	case ImpactLow:
		return 1
	default:
		return 0
	}
}

// Classification is the classifier verdict for one article.
type Classification struct {
	Category Category   `json:"category" yaml:"category"`
	Score    float64    `json:"score" yaml:"score"`
	Impact   ImpactTier `json:"impact" yaml:"impact"`
	Tags     []string   `json:"tags" yaml:"tags"`
	Accept   bool       `json:"accept" yaml:"accept"`
}

// ClassifiedArticle pairs a canonical article with its classification.
// It is built once per run and never mutated afterwards.
type ClassifiedArticle struct {
	CanonicalArticle `yaml:",inline"`
	Classification   `yaml:",inline"`
}

// CacheKey identifies a summary: the article URL plus a hash of the text
// that was summarized.
type CacheKey struct {
	URL  string `json:"url" yaml:"url"`
	Hash string `json:"hash" yaml:"hash"`
}

// SummaryCacheEntry is an immutable cached summary.
type SummaryCacheEntry struct {
	Key       CacheKey  `json:"key" yaml:"key"`
	Summary   string    `json:"summary" yaml:"summary"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// StoredStory is the persisted, externally visible record.
type StoredStory struct {
	ClassifiedArticle `yaml:",inline"`

	// Summary is the generated summary; empty when summarization was
	// skipped or failed.
	Summary string `json:"summary" yaml:"summary"`

	// Trending is owned by the maintenance sweep.
	Trending bool `json:"trending" yaml:"trending"`

	// ProcessedAt is when the pipeline stored the record.
	ProcessedAt time.Time `json:"processed_at" yaml:"processed_at"`
}

func hasText(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}
