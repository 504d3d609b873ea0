// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files
// and from an optional .env file. Each file in the directory represents one secret: the
// filename is the key name and the file contents (trimmed) are the value.
//
// Supported key files: newsapi-api-key, cohere-api-key, redis-password, mongo-uri, nats-url.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

// Key file names.
const (
	KeyNewsAPI       = "newsapi-api-key"
	KeyCohere        = "cohere-api-key"
	KeyRedisPassword = "redis-password"
	KeyMongoURI      = "mongo-uri"
	KeyNATSURL       = "nats-url"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings but do not abort.
func Load(dir string, logger zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadEnv loads each existing file into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Apply fills empty credential fields of cfg from s and returns the keys
// it used. Values already set by config or environment win.
func Apply(cfg *types.Config, s map[string]string) []string {
	var used []string
	fill := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if v, ok := s[key]; ok {
			*dst = v
			used = append(used, key)
		}
	}

	fill(&cfg.NewsAPI.APIKey, KeyNewsAPI)
	fill(&cfg.Summarize.APIKey, KeyCohere)
	fill(&cfg.Cache.RedisPassword, KeyRedisPassword)
	fill(&cfg.Store.MongoURI, KeyMongoURI)
	fill(&cfg.Publish.NATSURL, KeyNATSURL)
	return used
}
