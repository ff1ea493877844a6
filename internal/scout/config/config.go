package config

import (
	"time"

	"edtech-market-scout/pkg/config"
)

// LLM holds the configuration for the OpenAI-compatible chat provider.
type LLM struct {
	APIKey              string `mapstructure:"api_key"`
	BaseURL             string `mapstructure:"base_url"`
	Model               string `mapstructure:"model"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	MaxOutputTokens     int    `mapstructure:"max_output_tokens"`
}

// Search holds the configuration for the web search provider.
type Search struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// Scout holds the research pipeline tuning knobs.
type Scout struct {
	DefaultMaxCompanies int           `mapstructure:"default_max_companies"`
	RunTimeout          time.Duration `mapstructure:"run_timeout"`
	SoftRunLimit        time.Duration `mapstructure:"soft_run_limit"`
	HardRunLimit        time.Duration `mapstructure:"hard_run_limit"`
	ReaperSchedule      string        `mapstructure:"reaper_schedule"`
	WebsiteFetchTimeout time.Duration `mapstructure:"website_fetch_timeout"`
}

// Config holds the full configuration for the scout services.
type Config struct {
	App      config.App      `mapstructure:"app"`
	Logger   config.Logger   `mapstructure:"logger"`
	Database config.Database `mapstructure:"database"`
	Redis    config.Redis    `mapstructure:"redis"`
	API      config.API      `mapstructure:"api"`
	LLM      LLM             `mapstructure:"llm"`
	Search   Search          `mapstructure:"search"`
	Scout    Scout           `mapstructure:"scout"`
}

// Load loads the scout configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Scout.DefaultMaxCompanies == 0 {
		cfg.Scout.DefaultMaxCompanies = 5
	}
	if cfg.Scout.RunTimeout == 0 {
		cfg.Scout.RunTimeout = 30 * time.Minute
	}
	if cfg.Scout.SoftRunLimit == 0 {
		cfg.Scout.SoftRunLimit = 25 * time.Minute
	}
	if cfg.Scout.HardRunLimit == 0 {
		cfg.Scout.HardRunLimit = 30 * time.Minute
	}
	if cfg.Scout.ReaperSchedule == "" {
		cfg.Scout.ReaperSchedule = "@every 1m"
	}
	if cfg.Scout.WebsiteFetchTimeout == 0 {
		cfg.Scout.WebsiteFetchTimeout = 10 * time.Second
	}
	if cfg.LLM.MaxRequestPerMinute == 0 {
		cfg.LLM.MaxRequestPerMinute = 20
	}
	if cfg.LLM.MaxOutputTokens == 0 {
		cfg.LLM.MaxOutputTokens = 4000
	}
	if cfg.Search.BaseURL == "" {
		cfg.Search.BaseURL = "https://api.tavily.com/search"
	}
}
