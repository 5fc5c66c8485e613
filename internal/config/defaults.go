package config

import (
	"os"
	"strings"
)

// 默认值常量
const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppLogFormat     = "text"
	defaultAppHTTPAddr      = ":9992"
	defaultScanTimeframe    = "15m"
	defaultScanPageLimit    = 500
	defaultScanDayTimeframe = "1d"
	defaultScanDayLimit     = 4
	defaultScanDayWindow    = 2
	defaultCoinGeckoURL     = "https://api.coingecko.com/api/v3"
	defaultCoinGeckoTimeout = 20
	defaultCoinGeckoRPS     = 0.5

	envCoinGeckoAPIKey = "COINGECKO_API_KEY"
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Scan.applyDefaults(keys)
	c.CoinGecko.applyDefaults(keys)
	if c.Exchanges == nil {
		c.Exchanges = map[string]ExchangeConfig{}
	}
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (s *ScanConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("scan.timeframe", &s.Timeframe, defaultScanTimeframe),
		stringFieldDefault("scan.day_timeframe", &s.DayTimeframe, defaultScanDayTimeframe),
		intFieldDefault("scan.page_limit", &s.PageLimit, defaultScanPageLimit),
		intFieldDefault("scan.day_limit", &s.DayLimit, defaultScanDayLimit),
		intFieldDefault("scan.day_window_days", &s.DayWindowDays, defaultScanDayWindow),
	)
	s.Timeframe = strings.TrimSpace(s.Timeframe)
	s.DayTimeframe = strings.TrimSpace(s.DayTimeframe)
}

func (c *CoinGeckoConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("coingecko.base_url", &c.BaseURL, defaultCoinGeckoURL),
		intFieldDefault("coingecko.timeout_seconds", &c.TimeoutSeconds, defaultCoinGeckoTimeout),
	)
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = defaultCoinGeckoRPS
	}
	// 环境变量只在配置未给出 key 时生效。
	if strings.TrimSpace(c.APIKey) == "" {
		c.APIKey = strings.TrimSpace(os.Getenv(envCoinGeckoAPIKey))
	}
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
