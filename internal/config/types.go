package config

import (
	"strings"
	"time"

	"tgescan/internal/collector"
	"tgescan/internal/gateway/exchange"
	"tgescan/internal/listing"
)

// Config 是 tgescan 的主配置载体。
type Config struct {
	App       AppConfig                 `toml:"app"`
	Scan      ScanConfig                `toml:"scan"`
	Exchanges map[string]ExchangeConfig `toml:"exchanges"`
	CoinGecko CoinGeckoConfig           `toml:"coingecko"`
	Export    ExportConfig              `toml:"export"`
	Store     StoreConfig               `toml:"store"`
}

type AppConfig struct {
	Env       string `toml:"env"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogPath   string `toml:"log_path"`
	HTTPAddr  string `toml:"http_addr"`
}

// ScanConfig 控制 K 线采集与交易所名称映射。
type ScanConfig struct {
	Timeframe     string          `toml:"timeframe"`
	PageLimit     int             `toml:"page_limit"`
	DayTimeframe  string          `toml:"day_timeframe"`
	DayLimit      int             `toml:"day_limit"`
	DayWindowDays int             `toml:"day_window_days"`
	Aliases       []AliasEntry    `toml:"aliases"`
	Disabled      []DisabledEntry `toml:"disabled"`
}

// AliasEntry maps a listing's display name to a connector id. Names are
// kept as list values because viper splits map keys on dots ("Gate.io").
type AliasEntry struct {
	Exchange  string `toml:"exchange"`
	Connector string `toml:"connector"`
}

type DisabledEntry struct {
	Exchange string `toml:"exchange"`
	Reason   string `toml:"reason"`
}

// ExchangeConfig 是单个交易所的覆盖项，键为 connector id。
type ExchangeConfig struct {
	RESTBaseURL       string  `toml:"rest_base_url"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	ProxyURL          string  `toml:"proxy_url"`
	PageLimit         int     `toml:"page_limit"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	SpotOnly          bool    `toml:"spot_only"`
	// Params are "key=value" strings; viper would lower-case map keys and
	// exchange query parameters are case sensitive.
	Params []string `toml:"params"`
}

func (e ExchangeConfig) paramMap() map[string]string {
	if len(e.Params) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.Params))
	for _, kv := range e.Params {
		k, v, _ := strings.Cut(kv, "=")
		if k = strings.TrimSpace(k); k != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}

type CoinGeckoConfig struct {
	BaseURL           string  `toml:"base_url"`
	APIKey            string  `toml:"api_key"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	ProxyURL          string  `toml:"proxy_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// ExportConfig lists output files; empty paths are skipped.
type ExportConfig struct {
	SeriesCSV  string `toml:"series_csv"`
	ResultsCSV string `toml:"results_csv"`
	ChartHTML  string `toml:"chart_html"`
	ChartPNG   string `toml:"chart_png"`
}

// StoreConfig enables the run log when Path is set.
type StoreConfig struct {
	Path string `toml:"path"`
}

// ExchangeSettings converts the exchanges section into connector settings
// keyed by lower-case connector id.
func (c *Config) ExchangeSettings() map[string]exchange.Settings {
	out := make(map[string]exchange.Settings, len(c.Exchanges))
	for id, ex := range c.Exchanges {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		out[id] = exchange.Settings{
			RESTBaseURL:       ex.RESTBaseURL,
			HTTPTimeout:       time.Duration(ex.TimeoutSeconds) * time.Second,
			ProxyURL:          ex.ProxyURL,
			PageLimit:         ex.PageLimit,
			RequestsPerSecond: ex.RequestsPerSecond,
			SpotOnly:          ex.SpotOnly,
			Params:            ex.paramMap(),
		}
	}
	return out
}

func (c *Config) CollectorConfig() collector.Config {
	return collector.Config{
		Timeframe:    c.Scan.Timeframe,
		Limit:        c.Scan.PageLimit,
		DayTimeframe: c.Scan.DayTimeframe,
		DayLimit:     c.Scan.DayLimit,
		DayLookback:  time.Duration(c.Scan.DayWindowDays) * 24 * time.Hour,
	}
}

func (c *Config) CoinGeckoClientConfig() listing.CoinGeckoConfig {
	return listing.CoinGeckoConfig{
		BaseURL:           c.CoinGecko.BaseURL,
		APIKey:            c.CoinGecko.APIKey,
		Timeout:           time.Duration(c.CoinGecko.TimeoutSeconds) * time.Second,
		ProxyURL:          c.CoinGecko.ProxyURL,
		RequestsPerSecond: c.CoinGecko.RequestsPerSecond,
	}
}

// Aliases returns the built-in display-name table overlaid with scan.aliases.
func (c *Config) Aliases() map[string]string {
	extra := make(map[string]string, len(c.Scan.Aliases))
	for _, a := range c.Scan.Aliases {
		extra[a.Exchange] = a.Connector
	}
	return listing.MergeAliases(extra)
}

func (c *Config) DisabledExchanges() map[string]string {
	out := make(map[string]string, len(c.Scan.Disabled))
	for _, d := range c.Scan.Disabled {
		name := strings.TrimSpace(d.Exchange)
		if name == "" {
			continue
		}
		out[name] = strings.TrimSpace(d.Reason)
	}
	return out
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
