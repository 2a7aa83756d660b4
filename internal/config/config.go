package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dkalra/jobsieve/internal/model"
)

// Config is the root configuration for the jobsieve pipeline.
type Config struct {
	RunInterval time.Duration
	DBPath      string
	Feeds       []FeedConfig
	Profile     model.PreferenceProfile
	Biography   string
	CVFile      string
	Agents      AgentsConfig
	Pacing      PacingConfig
	Delivery    DeliveryConfig
	FeedTimeout time.Duration
}

// FeedConfig describes a single syndication feed to ingest.
type FeedConfig struct {
	URL     string `yaml:"url"`
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
}

// AgentsConfig holds the two classifier agents. Tier 1 is the cheap filter,
// tier 2 the detailed analyzer.
type AgentsConfig struct {
	Tier1 AgentConfig
	Tier2 AgentConfig
}

// AgentConfig binds one agent to a provider variant and model.
type AgentConfig struct {
	Enabled  bool
	Provider string // "ollama", "openai", "anthropic", "gemini", "deepseek"
	Model    string
	APIKey   string // expanded from env var by Load; unused for ollama
	Endpoint string // local endpoint URL; ollama only
	Timeout  time.Duration
}

// PacingConfig controls the mandatory gaps between upstream calls.
type PacingConfig struct {
	FeedDelay     time.Duration // between feed fetches
	ProviderDelay time.Duration // between completions on the same provider
}

// DeliveryConfig selects the delivery collaborator for approved jobs.
type DeliveryConfig struct {
	Type       string `yaml:"type"`        // "log" or "webhook"
	WebhookURL string `yaml:"webhook_url"` // required if type is "webhook"
}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations
// as strings).
type rawConfig struct {
	RunInterval string            `yaml:"run_interval"`
	DBPath      string            `yaml:"db_path"`
	Feeds       []FeedConfig      `yaml:"feeds"`
	Profile     rawProfileConfig  `yaml:"profile"`
	Biography   string            `yaml:"biography"`
	CVFile      string            `yaml:"cv_file"`
	Agents      rawAgentsConfig   `yaml:"agents"`
	Pacing      rawPacingConfig   `yaml:"pacing"`
	Delivery    DeliveryConfig    `yaml:"delivery"`
	FeedTimeout string            `yaml:"feed_timeout"`
}

type rawProfileConfig struct {
	Locations         []string `yaml:"locations"`
	WorkModes         []string `yaml:"work_modes"`
	CareerLevels      []string `yaml:"career_levels"`
	TechStack         []string `yaml:"tech_stack"`
	CompanySizes      []string `yaml:"company_sizes"`
	TravelWillingness string   `yaml:"travel_willingness"`
	SalaryRange       string   `yaml:"salary_range"`
}

type rawAgentsConfig struct {
	Tier1 rawAgentConfig `yaml:"tier1"`
	Tier2 rawAgentConfig `yaml:"tier2"`
}

type rawAgentConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
	Timeout  string `yaml:"timeout"`
}

type rawPacingConfig struct {
	FeedDelay     string `yaml:"feed_delay"`
	ProviderDelay string `yaml:"provider_delay"`
}

const (
	defaultRunInterval   = 6 * time.Hour
	defaultDBPath        = "jobsieve.db"
	defaultFeedTimeout   = 30 * time.Second
	defaultAgentTimeout  = 30 * time.Second
	defaultFeedDelay     = 2 * time.Second
	defaultProviderDelay = 1 * time.Second
	defaultOllamaURL     = "http://localhost:11434"
)

// Load reads and parses the YAML config file at path, validates it, and
// returns Config. Environment variables in the file are expanded first so
// secrets can be supplied as ${VAR}.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	runInterval := defaultRunInterval
	if raw.RunInterval != "" {
		runInterval, err = time.ParseDuration(raw.RunInterval)
		if err != nil {
			return nil, fmt.Errorf("parse run_interval %q: %w", raw.RunInterval, err)
		}
	}

	feedTimeout := defaultFeedTimeout
	if raw.FeedTimeout != "" {
		feedTimeout, err = time.ParseDuration(raw.FeedTimeout)
		if err != nil {
			return nil, fmt.Errorf("parse feed_timeout %q: %w", raw.FeedTimeout, err)
		}
	}

	feedDelay := defaultFeedDelay
	if raw.Pacing.FeedDelay != "" {
		feedDelay, err = time.ParseDuration(raw.Pacing.FeedDelay)
		if err != nil {
			return nil, fmt.Errorf("parse pacing.feed_delay %q: %w", raw.Pacing.FeedDelay, err)
		}
	}

	providerDelay := defaultProviderDelay
	if raw.Pacing.ProviderDelay != "" {
		providerDelay, err = time.ParseDuration(raw.Pacing.ProviderDelay)
		if err != nil {
			return nil, fmt.Errorf("parse pacing.provider_delay %q: %w", raw.Pacing.ProviderDelay, err)
		}
	}

	tier1, err := convertAgent("tier1", raw.Agents.Tier1)
	if err != nil {
		return nil, err
	}
	tier2, err := convertAgent("tier2", raw.Agents.Tier2)
	if err != nil {
		return nil, err
	}

	dbPath := raw.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	cfg := &Config{
		RunInterval: runInterval,
		DBPath:      dbPath,
		Feeds:       raw.Feeds,
		Profile: model.PreferenceProfile{
			Locations:         raw.Profile.Locations,
			WorkModes:         raw.Profile.WorkModes,
			CareerLevels:      raw.Profile.CareerLevels,
			TechStack:         raw.Profile.TechStack,
			CompanySizes:      raw.Profile.CompanySizes,
			TravelWillingness: raw.Profile.TravelWillingness,
			SalaryRange:       raw.Profile.SalaryRange,
		},
		Biography:   raw.Biography,
		CVFile:      raw.CVFile,
		Agents:      AgentsConfig{Tier1: tier1, Tier2: tier2},
		Pacing:      PacingConfig{FeedDelay: feedDelay, ProviderDelay: providerDelay},
		Delivery:    raw.Delivery,
		FeedTimeout: feedTimeout,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func convertAgent(name string, raw rawAgentConfig) (AgentConfig, error) {
	timeout := defaultAgentTimeout
	if raw.Timeout != "" {
		var err error
		timeout, err = time.ParseDuration(raw.Timeout)
		if err != nil {
			return AgentConfig{}, fmt.Errorf("parse agents.%s.timeout %q: %w", name, raw.Timeout, err)
		}
	}

	endpoint := raw.Endpoint
	if raw.Provider == "ollama" && endpoint == "" {
		endpoint = defaultOllamaURL
	}

	return AgentConfig{
		Enabled:  raw.Enabled,
		Provider: raw.Provider,
		Model:    raw.Model,
		APIKey:   raw.APIKey,
		Endpoint: endpoint,
		Timeout:  timeout,
	}, nil
}

// validate checks cross-field constraints that YAML parsing cannot express.
func (c *Config) validate() error {
	if len(c.Feeds) == 0 {
		return fmt.Errorf("config: at least one feed is required")
	}
	for i, f := range c.Feeds {
		if f.URL == "" {
			return fmt.Errorf("config: feeds[%d] has no url", i)
		}
	}

	if !c.Agents.Tier1.Enabled {
		return fmt.Errorf("config: agents.tier1 must be enabled")
	}
	for _, a := range []struct {
		name string
		cfg  AgentConfig
	}{{"tier1", c.Agents.Tier1}, {"tier2", c.Agents.Tier2}} {
		if !a.cfg.Enabled {
			continue
		}
		switch a.cfg.Provider {
		case "ollama":
			// endpoint defaulted above
		case "openai", "anthropic", "gemini", "deepseek":
			if a.cfg.APIKey == "" {
				return fmt.Errorf("config: agents.%s.api_key is required for provider %q", a.name, a.cfg.Provider)
			}
		default:
			return fmt.Errorf("config: agents.%s.provider %q is not supported", a.name, a.cfg.Provider)
		}
		if a.cfg.Model == "" {
			return fmt.Errorf("config: agents.%s.model is required", a.name)
		}
	}

	if c.Delivery.Type == "webhook" && c.Delivery.WebhookURL == "" {
		return fmt.Errorf("config: delivery.webhook_url is required for webhook delivery")
	}

	return nil
}

// LoadCV reads the optional CV text file referenced by cv_file. Returns an
// empty string when no file is configured.
func (c *Config) LoadCV() (string, error) {
	if c.CVFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.CVFile)
	if err != nil {
		return "", fmt.Errorf("read cv_file: %w", err)
	}
	return string(data), nil
}
