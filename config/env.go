package config

import (
	"fmt"
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays environment variables onto cfg. Only variables that
// are set are applied.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	var firstErr error
	fail := func(key, v string, err error) {
		if firstErr == nil {
			firstErr = fmt.Errorf("invalid value %q for %s: %w", v, key, err)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				fail(key, v, err)
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				fail(key, v, err)
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				fail(key, v, err)
				return
			}
			*dst = f
		}
	}

	if v, ok := lookup("TARGET_SITES"); ok {
		cfg.TargetSites = splitList(v)
	}

	str("TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken)
	str("TELEGRAM_CHANNEL_ID", &cfg.Telegram.ChannelID)
	str("OPENAI_API_KEY", &cfg.OpenAI.APIKey)

	str("PROXY_PROXY_HOST", &cfg.Proxy.Proxy.Host)
	integer("PROXY_PROXY_PORT", &cfg.Proxy.Proxy.Port)

	float("BROWSER_TIMING_MIN_WAIT_TIME", &cfg.Browser.Timing.MinWaitTime)
	float("BROWSER_TIMING_MAX_WAIT_TIME", &cfg.Browser.Timing.MaxWaitTime)
	boolean("BROWSER_ANTI_BOT_ENABLED", &cfg.Browser.AntiBot.Enabled)
	boolean("BROWSER_ANTI_BOT_RANDOMIZE_TIMING", &cfg.Browser.AntiBot.RandomizeTiming)

	boolean("SCRAPING_SNAPSHOTS_SAVE_HTML", &cfg.Scraping.Snapshots.SaveHTML)
	integer("SCRAPING_SNAPSHOTS_MAX_SNAPSHOTS_PER_SITE", &cfg.Scraping.Snapshots.MaxSnapshotsPerSite)
	boolean("SCRAPING_SNAPSHOTS_CLEANUP_OLD_SNAPSHOTS", &cfg.Scraping.Snapshots.CleanupOldSnapshots)

	boolean("LEAKWATCH_DEBUG", &cfg.Debug)

	return firstErr
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
