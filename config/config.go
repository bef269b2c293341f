// Package config loads the runtime configuration from leakwatch.yaml, the
// environment and command-line key.path=value overrides.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file read when no path is given.
const DefaultPath = "leakwatch.yaml"

// DefaultUserAgent is sent by the browser unless configured otherwise.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; rv:102.0) Gecko/20100101 Firefox/102.0"

// Config is the complete runtime configuration.
type Config struct {
	Paths       PathsConfig    `yaml:"paths"`
	Browser     BrowserConfig  `yaml:"browser"`
	Proxy       ProxyConfig    `yaml:"proxy"`
	Scraping    ScrapingConfig `yaml:"scraping"`
	Telegram    TelegramConfig `yaml:"telegram"`
	OpenAI      OpenAIConfig   `yaml:"openai"`
	TimeSources []string       `yaml:"time_sources"`
	// TargetSites limits a scan to these site keys; empty means all.
	TargetSites []string `yaml:"target_sites"`
	Debug       bool     `yaml:"debug"`
}

// PathsConfig locates every file the pipeline reads or writes.
type PathsConfig struct {
	SitesDir     string `yaml:"sites_dir"`
	OutputDir    string `yaml:"output_dir"`
	PerGroupDir  string `yaml:"per_group_dir"`
	ProcessedDir string `yaml:"processed_dir"`
	AIDir        string `yaml:"ai_dir"`
	SnapshotsDir string `yaml:"snapshots_dir"`
	LedgerPath   string `yaml:"ledger_path"`
}

// BrowserConfig controls the Tor browser.
type BrowserConfig struct {
	Timing     TimingConfig  `yaml:"timing"`
	AntiBot    AntiBotConfig `yaml:"anti_bot"`
	UserAgent  string        `yaml:"user_agent"`
	ChromePath string        `yaml:"chrome_path"`
	Headful    bool          `yaml:"headful"`
}

// TimingConfig values are in seconds.
type TimingConfig struct {
	MinWaitTime      float64 `yaml:"min_wait_time"`
	MaxWaitTime      float64 `yaml:"max_wait_time"`
	TorCheckWaitTime float64 `yaml:"tor_check_wait_time"`
	PageLoadTimeout  float64 `yaml:"page_load_timeout"`
}

// AntiBotConfig controls the post-navigation wait.
type AntiBotConfig struct {
	Enabled         bool `yaml:"enabled"`
	RandomizeTiming bool `yaml:"randomize_timing"`
}

// ProxyConfig holds the SOCKS proxy Tor listens on.
type ProxyConfig struct {
	Proxy struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"proxy"`
}

// ScrapingConfig controls raw HTML retention.
type ScrapingConfig struct {
	Snapshots struct {
		SaveHTML            bool `yaml:"save_html"`
		MaxSnapshotsPerSite int  `yaml:"max_snapshots_per_site"`
		CleanupOldSnapshots bool `yaml:"cleanup_old_snapshots"`
	} `yaml:"snapshots"`
}

// TelegramConfig holds the notification channel.
type TelegramConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
	APIBase   string `yaml:"api_base"`
}

// OpenAIConfig controls enrichment.
type OpenAIConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	BatchSize int    `yaml:"batch_size"`
	// BatchDelay is in seconds.
	BatchDelay float64 `yaml:"batch_delay"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		Paths: PathsConfig{
			SitesDir:     "config/sites",
			OutputDir:    "data/output",
			PerGroupDir:  "data/output/per_group",
			ProcessedDir: "data/processed",
			AIDir:        "data/AI",
			SnapshotsDir: "data/snapshots/html_snapshots",
			LedgerPath:   "data/notifications.db",
		},
		Browser: BrowserConfig{
			Timing: TimingConfig{
				MinWaitTime:      10,
				MaxWaitTime:      20,
				TorCheckWaitTime: 3,
				PageLoadTimeout:  120,
			},
			AntiBot: AntiBotConfig{
				Enabled:         true,
				RandomizeTiming: true,
			},
			UserAgent: DefaultUserAgent,
		},
		Telegram: TelegramConfig{
			Enabled: true,
		},
		OpenAI: OpenAIConfig{
			Model:      "o3-mini",
			BatchSize:  100,
			BatchDelay: 2,
		},
	}
	cfg.Proxy.Proxy.Host = "127.0.0.1"
	cfg.Proxy.Proxy.Port = 9050
	cfg.Scraping.Snapshots.MaxSnapshotsPerSite = 5
	cfg.Scraping.Snapshots.CleanupOldSnapshots = true
	return cfg
}

// Load reads the configuration at path over the defaults and then applies
// environment overrides. A missing file is not an error; a file that
// exists but cannot be parsed is.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		log.Printf("INFO: Config file %s not found, using defaults", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Seconds converts a configured number of seconds to a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
