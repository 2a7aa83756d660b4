package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkalra/jobsieve/internal/config"
	"github.com/dkalra/jobsieve/internal/dedup"
	"github.com/dkalra/jobsieve/internal/feed"
	"github.com/dkalra/jobsieve/internal/llm"
	"github.com/dkalra/jobsieve/internal/model"
	"github.com/dkalra/jobsieve/internal/notifier"
	"github.com/dkalra/jobsieve/internal/pipeline"
	"github.com/dkalra/jobsieve/internal/retry"
	"github.com/dkalra/jobsieve/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobsieve",
	Short: "Job feed sieve — ingest, classify, deliver",
	Long:  "JobSieve pulls job postings from syndication feeds, runs them through a two-tier model-assisted filter, and delivers the keepers.",
	// Default to `run` so that `jobsieve` with no args executes one full
	// pipeline cycle.
	RunE: runRun,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSIEVE_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBSIEVE_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBSIEVE_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// openStore opens the database and reconciles the configured feeds into it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	for _, fc := range cfg.Feeds {
		src := &model.FeedSource{URL: fc.URL, Name: fc.Name, Enabled: fc.Enabled}
		if err := st.UpsertFeedSource(ctx, src); err != nil {
			st.Close()
			return nil, fmt.Errorf("registering feed %s: %w", fc.Name, err)
		}
		logger.Debug("registered feed", "name", fc.Name, "url", fc.URL, "enabled", fc.Enabled)
	}
	return st, nil
}

// buildAgent constructs the provider for one agent, or nil when disabled.
func buildAgent(a config.AgentConfig) (llm.Provider, error) {
	if !a.Enabled {
		return nil, nil
	}
	client := &http.Client{Timeout: a.Timeout}
	return llm.NewProvider(llm.Settings{
		Provider: a.Provider,
		Model:    a.Model,
		APIKey:   a.APIKey,
		Endpoint: a.Endpoint,
	}, client)
}

func buildClassifier(cfg *config.Config, logger *slog.Logger) (*llm.Classifier, error) {
	agent1, err := buildAgent(cfg.Agents.Tier1)
	if err != nil {
		return nil, fmt.Errorf("tier1 agent: %w", err)
	}
	agent2, err := buildAgent(cfg.Agents.Tier2)
	if err != nil {
		return nil, fmt.Errorf("tier2 agent: %w", err)
	}

	cv, err := cfg.LoadCV()
	if err != nil {
		return nil, fmt.Errorf("loading cv: %w", err)
	}

	return llm.NewClassifier(agent1, agent2, cfg.Profile, cfg.Biography, cv, logger), nil
}

func buildDeliverer(cfg *config.Config, logger *slog.Logger) model.Deliverer {
	switch cfg.Delivery.Type {
	case "webhook":
		logger.Info("using webhook delivery")
		client := &http.Client{Timeout: 30 * time.Second}
		return notifier.NewWebhookDeliverer(cfg.Delivery.WebhookURL, client, logger)
	default:
		return notifier.NewLogDeliverer(logger)
	}
}

func buildOrchestrator(cfg *config.Config, st *store.SQLiteStore, logger *slog.Logger) (*pipeline.Orchestrator, error) {
	classifier, err := buildClassifier(cfg, logger)
	if err != nil {
		return nil, err
	}

	var fetcher model.FeedFetcher = feed.NewFetcher(&http.Client{Timeout: cfg.FeedTimeout}, logger)
	fetcher = retry.NewRetryFetcher(fetcher, 2, 5*time.Second, logger)

	gate := dedup.NewGate(st, logger)
	deliverer := buildDeliverer(cfg, logger)

	return pipeline.NewOrchestrator(st, fetcher, gate, classifier, deliverer,
		cfg.Pacing.FeedDelay, cfg.Pacing.ProviderDelay, logger), nil
}
