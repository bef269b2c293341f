package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leakwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// TestLoad_NoFile verifies a missing file yields the defaults
func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 10.0, cfg.Browser.Timing.MinWaitTime)
	assert.Equal(t, 20.0, cfg.Browser.Timing.MaxWaitTime)
	assert.True(t, cfg.Browser.AntiBot.Enabled)
	assert.Equal(t, "127.0.0.1", cfg.Proxy.Proxy.Host)
	assert.Equal(t, 9050, cfg.Proxy.Proxy.Port)
	assert.False(t, cfg.Scraping.Snapshots.SaveHTML)
	assert.Equal(t, 5, cfg.Scraping.Snapshots.MaxSnapshotsPerSite)
	assert.Equal(t, "o3-mini", cfg.OpenAI.Model)
	assert.Equal(t, "config/sites", cfg.Paths.SitesDir)
}

// TestLoad_ValidConfig verifies file values replace only the keys they name
func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `paths:
  output_dir: /var/lib/leakwatch/output
browser:
  timing:
    min_wait_time: 5
  anti_bot:
    randomize_timing: false
proxy:
  proxy:
    port: 9150
telegram:
  enabled: false
time_sources:
  - http://clock.internal/now
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/leakwatch/output", cfg.Paths.OutputDir)
	assert.Equal(t, "data/processed", cfg.Paths.ProcessedDir)
	assert.Equal(t, 5.0, cfg.Browser.Timing.MinWaitTime)
	assert.Equal(t, 20.0, cfg.Browser.Timing.MaxWaitTime)
	assert.False(t, cfg.Browser.AntiBot.RandomizeTiming)
	assert.True(t, cfg.Browser.AntiBot.Enabled)
	assert.Equal(t, 9150, cfg.Proxy.Proxy.Port)
	assert.False(t, cfg.Telegram.Enabled)
	assert.Equal(t, []string{"http://clock.internal/now"}, cfg.TimeSources)
}

// TestLoad_InvalidYAML verifies a malformed file is an error
func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `browser:
  timing:
    - this is invalid because timing should be an object not a list
`)

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

// TestApplyEnv verifies each supported variable
func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(cfg, envMap(map[string]string{
		"TARGET_SITES":                              " lockbit, bashe ,,",
		"TELEGRAM_BOT_TOKEN":                        "token",
		"TELEGRAM_CHANNEL_ID":                       "@chan",
		"OPENAI_API_KEY":                            "sk-test",
		"PROXY_PROXY_HOST":                          "tor",
		"PROXY_PROXY_PORT":                          "9150",
		"BROWSER_TIMING_MIN_WAIT_TIME":              "1.5",
		"BROWSER_TIMING_MAX_WAIT_TIME":              "3",
		"BROWSER_ANTI_BOT_ENABLED":                  "false",
		"BROWSER_ANTI_BOT_RANDOMIZE_TIMING":         "0",
		"SCRAPING_SNAPSHOTS_SAVE_HTML":              "true",
		"SCRAPING_SNAPSHOTS_MAX_SNAPSHOTS_PER_SITE": "2",
		"SCRAPING_SNAPSHOTS_CLEANUP_OLD_SNAPSHOTS":  "false",
		"LEAKWATCH_DEBUG":                           "1",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"lockbit", "bashe"}, cfg.TargetSites)
	assert.Equal(t, "token", cfg.Telegram.BotToken)
	assert.Equal(t, "@chan", cfg.Telegram.ChannelID)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "tor", cfg.Proxy.Proxy.Host)
	assert.Equal(t, 9150, cfg.Proxy.Proxy.Port)
	assert.Equal(t, 1.5, cfg.Browser.Timing.MinWaitTime)
	assert.Equal(t, 3.0, cfg.Browser.Timing.MaxWaitTime)
	assert.False(t, cfg.Browser.AntiBot.Enabled)
	assert.False(t, cfg.Browser.AntiBot.RandomizeTiming)
	assert.True(t, cfg.Scraping.Snapshots.SaveHTML)
	assert.Equal(t, 2, cfg.Scraping.Snapshots.MaxSnapshotsPerSite)
	assert.False(t, cfg.Scraping.Snapshots.CleanupOldSnapshots)
	assert.True(t, cfg.Debug)
}

// TestApplyEnv_Invalid verifies a malformed value is reported
func TestApplyEnv_Invalid(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(cfg, envMap(map[string]string{"PROXY_PROXY_PORT": "ninety"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROXY_PROXY_PORT")
	assert.Equal(t, 9050, cfg.Proxy.Proxy.Port)
}

// TestOverride verifies dotted paths and value coercion
func TestOverride(t *testing.T) {
	cfg := Default()

	require.NoError(t, Override(cfg, "browser.timing.min_wait_time=15"))
	require.NoError(t, Override(cfg, "browser.timing.max_wait_time=22.5"))
	require.NoError(t, Override(cfg, "browser.anti_bot.enabled=False"))
	require.NoError(t, Override(cfg, "proxy.proxy.host=10.0.0.2"))
	require.NoError(t, Override(cfg, "scraping.snapshots.save_html=true"))
	require.NoError(t, Override(cfg, "browser.user_agent=curl/8.0"))
	require.NoError(t, Override(cfg, "target_sites=lockbit,bashe"))

	assert.Equal(t, 15.0, cfg.Browser.Timing.MinWaitTime)
	assert.Equal(t, 22.5, cfg.Browser.Timing.MaxWaitTime)
	assert.False(t, cfg.Browser.AntiBot.Enabled)
	assert.Equal(t, "10.0.0.2", cfg.Proxy.Proxy.Host)
	assert.True(t, cfg.Scraping.Snapshots.SaveHTML)
	assert.Equal(t, "curl/8.0", cfg.Browser.UserAgent)
	assert.Equal(t, []string{"lockbit", "bashe"}, cfg.TargetSites)

	// Untouched settings survive the round trip
	assert.Equal(t, 9050, cfg.Proxy.Proxy.Port)
	assert.Equal(t, "data/output", cfg.Paths.OutputDir)
}

// TestOverride_Errors covers malformed options
func TestOverride_Errors(t *testing.T) {
	cfg := Default()

	assert.True(t, errors.Is(Override(cfg, "browser.timing.min_wait_time"), ErrBadOverride))
	assert.True(t, errors.Is(Override(cfg, "browser.timing.nope=1"), ErrUnknownKey))
	assert.True(t, errors.Is(Override(cfg, "browser.timing=1"), ErrUnknownKey))
	assert.Error(t, Override(cfg, "proxy.proxy.port=tor"), "string into int")
	assert.Equal(t, 9050, cfg.Proxy.Proxy.Port)
}

// TestApplyOverrides verifies the section prefix
func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	require.NoError(t, ApplyOverrides(cfg, "browser", []string{"timing.page_load_timeout=60", "headful=true"}))
	assert.Equal(t, 60*time.Second, Seconds(cfg.Browser.Timing.PageLoadTimeout))
	assert.True(t, cfg.Browser.Headful)
}
