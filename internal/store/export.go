// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.yaml.in/yaml/v3"
)

// ExportEntry is the flattened story written by exports.
type ExportEntry struct {
	URL         string    `json:"url" yaml:"url"`
	Title       string    `json:"title" yaml:"title"`
	Summary     string    `json:"summary,omitempty" yaml:"summary,omitempty"`
	Source      string    `json:"source" yaml:"source"`
	ImageURL    string    `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	Category    string    `json:"category" yaml:"category"`
	Score       float64   `json:"score" yaml:"score"`
	Impact      string    `json:"impact" yaml:"impact"`
	Tags        []string  `json:"tags" yaml:"tags"`
	Trending    bool      `json:"trending" yaml:"trending"`
	PublishedAt time.Time `json:"published_at,omitempty" yaml:"published_at,omitempty"`
	ProcessedAt time.Time `json:"processed_at" yaml:"processed_at"`
}

// ExportFormat selects the export encoding.
type ExportFormat string

const (
	FormatYAML ExportFormat = "yaml"
	FormatJSON ExportFormat = "json"
)

// Export writes the stories matching opts to w in the given format.
func (s *SQLite) Export(ctx context.Context, w io.Writer, format ExportFormat, opts ListOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case FormatYAML:
		data, err = yaml.Marshal(entries)
		if err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
	case FormatJSON:
		data, err = json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		data = append(data, '\n')
	default:
		return fmt.Errorf("unknown export format %q", format)
	}

	_, err = w.Write(data)
	return err
}

func (s *SQLite) exportEntries(ctx context.Context, opts ListOptions) ([]ExportEntry, error) {
	stories, err := s.ListStories(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(stories))
	for i, st := range stories {
		entries[i] = ExportEntry{
			URL:         st.URL,
			Title:       st.Title,
			Summary:     st.Summary,
			Source:      st.SourceName,
			ImageURL:    st.ImageURL,
			Category:    string(st.Category),
			Score:       st.Score,
			Impact:      string(st.Impact),
			Tags:        st.Tags,
			Trending:    st.Trending,
			PublishedAt: st.PublishedAt,
			ProcessedAt: st.ProcessedAt,
		}
	}
	return entries, nil
}
