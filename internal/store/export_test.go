// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

func seedExport(t *testing.T, s *SQLite) {
	t.Helper()
	a := story("https://example.com/a", types.CategoryLabor, 7, processed)
	a.Summary = "Workers won."
	b := story("https://example.com/b", types.CategoryHealth, 5, processed.Add(-1))
	require.NoError(t, s.UpsertStories(context.Background(), []types.StoredStory{a, b}))
}

func TestExportYAML(t *testing.T) {
	s := testSetup(t)
	seedExport(t, s)

	var buf bytes.Buffer
	require.NoError(t, s.Export(context.Background(), &buf, FormatYAML, ListOptions{}))

	var entries []ExportEntry
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "https://example.com/a", entries[0].URL)
	assert.Equal(t, "Workers won.", entries[0].Summary)
	assert.Equal(t, "workers-rights", entries[0].Category)
	assert.Equal(t, "Example", entries[0].Source)
}

func TestExportJSONWithFilter(t *testing.T) {
	s := testSetup(t)
	seedExport(t, s)

	var buf bytes.Buffer
	require.NoError(t, s.Export(context.Background(), &buf, FormatJSON, ListOptions{Category: types.CategoryHealth}))

	var entries []ExportEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "https://example.com/b", entries[0].URL)
	assert.Equal(t, "low", entries[0].Impact)
}

func TestExportUnknownFormat(t *testing.T) {
	s := testSetup(t)

	var buf bytes.Buffer
	err := s.Export(context.Background(), &buf, ExportFormat("csv"), ListOptions{})
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}
