package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "15m", cfg.Scan.Timeframe)
	assert.Equal(t, 500, cfg.Scan.PageLimit)
	assert.Equal(t, 2, cfg.Scan.DayWindowDays)
	assert.Equal(t, 48*time.Hour, cfg.CollectorConfig().DayLookback)
	assert.Equal(t, defaultCoinGeckoURL, cfg.CoinGecko.BaseURL)
	assert.Empty(t, cfg.ExchangeSettings())
}

func TestLoadWithIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "exchanges.yaml", `
exchanges:
  okx:
    rest_base_url: http://okx.local
    page_limit: 100
    requests_per_second: 5
    params:
      - instType=SPOT
  gate:
    timeout_seconds: 30
`)
	path := writeFile(t, dir, "config.yaml", `
include:
  - exchanges.yaml
app:
  log_level: debug
scan:
  timeframe: 5m
  day_window_days: 3
  aliases:
    - exchange: Gate.io
      connector: GATE
  disabled:
    - exchange: Bitget
      reason: geo-blocked
store:
  path: data/runs.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "text", cfg.App.LogFormat)
	assert.Equal(t, "5m", cfg.Scan.Timeframe)
	assert.Equal(t, 72*time.Hour, cfg.CollectorConfig().DayLookback)
	assert.Equal(t, "data/runs.db", cfg.Store.Path)

	settings := cfg.ExchangeSettings()
	require.Contains(t, settings, "okx")
	assert.Equal(t, "http://okx.local", settings["okx"].RESTBaseURL)
	assert.Equal(t, 100, settings["okx"].PageLimit)
	assert.Equal(t, "SPOT", settings["okx"].Params["instType"])
	assert.Equal(t, 30*time.Second, settings["gate"].HTTPTimeout)

	assert.Equal(t, "gate", cfg.Aliases()["Gate.io"])
	assert.Equal(t, "binance", cfg.Aliases()["Binance"])
	assert.Equal(t, map[string]string{"Bitget": "geo-blocked"}, cfg.DisabledExchanges())
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")
	_, err := Load(filepath.Join(dir, "a.yaml"))
	assert.ErrorContains(t, err, "include cycle")
}

func TestLoadRejectsBadTimeframe(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "scan:\n  timeframe: 7x\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "scan.timeframe")
}

func TestLoadRejectsIncompleteAlias(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "scan:\n  aliases:\n    - exchange: Foo\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "scan.aliases[0]")
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/tgescan.yaml")
	assert.Equal(t, "flag.yaml", ResolvePath(" flag.yaml "))
	assert.Equal(t, "/etc/tgescan.yaml", ResolvePath(""))
}

func TestCoinGeckoKeyFromEnv(t *testing.T) {
	t.Setenv(envCoinGeckoAPIKey, "cg-secret")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "cg-secret", cfg.CoinGeckoClientConfig().APIKey)
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, t.TempDir(), ".env", "TGESCAN_TEST_DOTENV=loaded\n")
	t.Cleanup(func() { os.Unsetenv("TGESCAN_TEST_DOTENV") })
	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("TGESCAN_TEST_DOTENV"))
}

func TestWatchReloads(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "app:\n  log_level: info\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var level atomic.Value
	go func() {
		_ = Watch(ctx, path, func(cfg *Config) { level.Store(cfg.App.LogLevel) })
	}()
	// give the watcher time to register before writing
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("app:\n  log_level: debug\n"), 0o644))

	require.Eventually(t, func() bool {
		v, _ := level.Load().(string)
		return v == "debug"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatchStopsWithContext(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "app:\n  log_level: info\n")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, nil) }()
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher still running after cancel")
	}
}

func TestWatchMissingFile(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.ErrorContains(t, err, "watch config")
}
