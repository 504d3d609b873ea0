// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T) string
		want   map[string]string
		errMsg string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "newsapi-api-key", "  na_abc123  \n")
				writeFile(t, dir, "cohere-api-key", "co_xyz789")
				writeFile(t, dir, "nats-url", "nats://localhost:4222\n")
				return dir
			},
			want: map[string]string{
				"newsapi-api-key": "na_abc123",
				"cohere-api-key":  "co_xyz789",
				"nats-url":        "nats://localhost:4222",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "cohere-api-key", "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{
				"cohere-api-key": "valid-key",
			},
		},
		{
			name: "skips dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, "newsapi-api-key", "pk_real")
				return dir
			},
			want: map[string]string{
				"newsapi-api-key": "pk_real",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "cohere-api-key", "ak_123")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				"cohere-api-key": "ak_123",
			},
		},
		{
			name: "returns empty map for empty directory",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			got, err := Load(dir, zerolog.Nop())
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files without permission bits")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	// Create a file then remove read permission.
	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir, zerolog.Nop())
	require.NoError(t, err)
	// The good file should still be returned; the bad file is skipped with a warning.
	assert.Equal(t, "value123", got["good-key"])
	_, hasBad := got["bad-key"]
	assert.False(t, hasBad, "unreadable file should not appear in result")
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, dir, ".env", "GOODNEWS_TEST_FROM_FILE=from-file\nGOODNEWS_TEST_PRESET=from-file\n")

	t.Setenv("GOODNEWS_TEST_PRESET", "from-env")
	t.Setenv("GOODNEWS_TEST_FROM_FILE", "")
	os.Unsetenv("GOODNEWS_TEST_FROM_FILE")

	require.NoError(t, LoadEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv("GOODNEWS_TEST_FROM_FILE"))
	assert.Equal(t, "from-env", os.Getenv("GOODNEWS_TEST_PRESET"))
}

func TestApply(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.Summarize.APIKey = "configured"

	used := Apply(&cfg, map[string]string{
		KeyNewsAPI:       "na",
		KeyCohere:        "from-secret",
		KeyRedisPassword: "pw",
		KeyMongoURI:      "mongodb://localhost",
		KeyNATSURL:       "nats://localhost:4222",
		"unrelated":      "x",
	})

	assert.Equal(t, "na", cfg.NewsAPI.APIKey)
	assert.Equal(t, "configured", cfg.Summarize.APIKey)
	assert.Equal(t, "pw", cfg.Cache.RedisPassword)
	assert.Equal(t, "mongodb://localhost", cfg.Store.MongoURI)
	assert.Equal(t, "nats://localhost:4222", cfg.Publish.NATSURL)
	assert.Equal(t, []string{KeyNewsAPI, KeyRedisPassword, KeyMongoURI, KeyNATSURL}, used)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
