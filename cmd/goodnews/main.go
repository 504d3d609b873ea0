// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the goodnews CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/goodnews-engine/internal/metrics"
	"github.com/pdiddy/goodnews-engine/internal/secrets"
	"github.com/pdiddy/goodnews-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// keyDelimiter replaces viper's "." so outlet domains can be map keys.
const keyDelimiter = "::"

var (
	v = viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))

	// cfg and logger are populated by PersistentPreRunE.
	cfg    types.Config
	logger zerolog.Logger
)

// envKeys are bound explicitly so they resolve without a config file.
var envKeys = []string{
	"newsapi::api_key",
	"summarize::api_key",
	"summarize::model",
	"store::driver",
	"store::data_dir",
	"store::mongo_uri",
	"store::mongo_database",
	"cache::redis_addr",
	"cache::redis_password",
	"publish::nats_url",
	"publish::subject",
}

// rootCmd is the base command for the goodnews CLI.
var rootCmd = &cobra.Command{
	Use:   "goodnews",
	Short: "Ingest, score and summarize constructive news",
	Long: `goodnews pulls articles from a news search API and per-outlet RSS feeds,
deduplicates them, scores each against a rubric of constructive content,
summarizes the accepted stories, and stores them for display.

Use run for a single pass, serve for the scheduler and HTTP surface, and
maintain for the trending and retention sweep.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(cmd)

		if err := secrets.LoadEnv(".env"); err != nil {
			return err
		}
		if err := readConfig(cmd); err != nil {
			return err
		}

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		if used := secrets.Apply(&cfg, s); len(used) > 0 {
			logger.Debug().Strs("keys", used).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./goodnews.yaml or ~/.config/goodnews/goodnews.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "write logs as JSON instead of console text")
}

func newLogger(cmd *cobra.Command) zerolog.Logger {
	levelName, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("log-json")

	level, err := zerolog.ParseLevel(strings.ToLower(levelName))
	if err != nil || levelName == "" {
		level = zerolog.InfoLevel
	}

	if jsonLogs {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// readConfig layers the config file and GOODNEWS_ environment variables
// over types.DefaultConfig.
func readConfig(cmd *cobra.Command) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("goodnews")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "goodnews"))
		}
	}

	v.SetEnvPrefix("GOODNEWS")
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	v.AutomaticEnv()
	for _, k := range envKeys {
		if err := v.BindEnv(k); err != nil {
			return fmt.Errorf("binding %s: %w", k, err)
		}
	}

	if err := v.ReadInConfig(); err == nil {
		logger.Info().Str("file", v.ConfigFileUsed()).Msg("using config file")
	} else if cfgFile != "" {
		return fmt.Errorf("reading config %s: %w", cfgFile, err)
	}

	cfg = types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	return nil
}

func main() {
	metrics.Init(version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
