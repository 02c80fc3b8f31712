// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the newsletter-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/newsletter-engine/internal/evidence"
	"github.com/pdiddy/newsletter-engine/internal/logging"
	"github.com/pdiddy/newsletter-engine/internal/reason"
	"github.com/pdiddy/newsletter-engine/internal/retrieve"
	"github.com/pdiddy/newsletter-engine/internal/run"
	"github.com/pdiddy/newsletter-engine/internal/secrets"
	"github.com/pdiddy/newsletter-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the newsletter-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "newsletter-engine",
	Short: "Evidence-grounded newsletter generation for digital infrastructure",
	Long: `newsletter-engine produces a multi-section newsletter covering digital
infrastructure verticals: data centers, connectivity and fibre, towers and
wireless. Each section is researched from live sources, drafted, reviewed
against a grounding rubric, and harmonized before assembly.

Runs are persisted; a finished issue can be updated one section at a time
without regenerating its siblings.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./newsletter-engine.yaml or ~/.config/newsletter-engine/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("newsletter-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "newsletter-engine"))
		}
	}

	viper.SetEnvPrefix("NEWSLETTER_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the CLI logger from the log-level flag.
func newLogger() *logrus.Logger {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	return logging.New(level, os.Stderr)
}

// buildConfig resolves the pipeline configuration from defaults, the
// config file, environment, and loaded secrets, in that order.
func buildConfig() types.PipelineConfig {
	cfg := types.DefaultConfig()

	if v := viper.GetString("retrieval.tavily_api_key"); v != "" {
		cfg.Retrieval.TavilyAPIKey = v
	}
	cfg.Retrieval.TavilyAPIKey = secretDefault("tavily-api-key", cfg.Retrieval.TavilyAPIKey)
	if v := viper.GetInt("retrieval.call_budget"); v > 0 {
		cfg.Retrieval.CallBudget = v
	}
	if v := viper.GetInt("retrieval.max_results_per_query"); v > 0 {
		cfg.Retrieval.MaxResultsPerQuery = v
	}
	if v := viper.GetInt("retrieval.fetch_top_articles"); v > 0 {
		cfg.Retrieval.FetchTopArticles = v
	}
	if v := viper.GetFloat64("retrieval.rate_per_second"); v > 0 {
		cfg.Retrieval.RatePerSecond = v
	}

	if v := viper.GetString("reason.model"); v != "" {
		cfg.Reason.Model = v
	}
	if v := viper.GetString("reason.base_url"); v != "" {
		cfg.Reason.BaseURL = v
	}
	cfg.Reason.APIKey = secretDefault("openai-api-key", viper.GetString("reason.api_key"))

	if v := viper.GetInt("review.max_rounds"); v > 0 {
		cfg.Review.MaxRounds = v
	}
	if v := viper.GetString("store.dir"); v != "" {
		cfg.Store.Dir = v
	}
	if v := viper.GetString("output.title"); v != "" {
		cfg.Output.Title = v
	}
	if v := viper.GetDuration("scheduling.unit_timeout"); v > 0 {
		cfg.Scheduling.UnitTimeout = v
	}
	if v := viper.GetDuration("scheduling.run_deadline"); v > 0 {
		cfg.Scheduling.RunDeadline = v
	}
	return cfg
}

// buildOrchestrator wires the full pipeline for one CLI invocation.
// The returned store must be closed by the caller.
func buildOrchestrator(cfg types.PipelineConfig, log *logrus.Logger) (*run.Orchestrator, *run.Store, error) {
	svc, err := reason.NewOpenAIService(cfg.Reason)
	if err != nil {
		return nil, nil, err
	}

	tools := evidence.ToolSet{
		Fetch:  retrieve.NewArticleFetcher(cfg.Retrieval),
		Market: retrieve.NewMarketClient(cfg.Retrieval),
	}
	if cfg.Retrieval.TavilyAPIKey != "" {
		tools.Search = retrieve.NewTavilyClient(cfg.Retrieval)
	} else {
		log.Warn("no tavily-api-key found; web search is disabled")
	}
	builder := evidence.NewBuilder(tools, cfg.Retrieval, log)

	store, err := run.NewStore(cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	return run.NewOrchestrator(cfg, svc, builder, store, &run.LogNotifier{Log: log}, log), store, nil
}

// parseWindow converts --from/--to flags into a time window. Empty values
// leave the orchestrator's defaults in place.
func parseWindow(from, to string) (types.TimeWindow, error) {
	var w types.TimeWindow
	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return w, fmt.Errorf("parsing --from: %w", err)
		}
		w.Start = t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return w, fmt.Errorf("parsing --to: %w", err)
		}
		w.End = t
	}
	return w, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
