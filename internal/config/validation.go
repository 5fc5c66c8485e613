package config

import (
	"fmt"
	"strings"

	"tgescan/internal/market"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Scan.validate(); err != nil {
		return err
	}
	for id, ex := range c.Exchanges {
		if err := ex.validate(id); err != nil {
			return err
		}
	}
	if c.CoinGecko.TimeoutSeconds < 0 {
		return fmt.Errorf("coingecko.timeout_seconds must be >= 0")
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.LogFormat)) {
	case "", "text", "json":
	default:
		return fmt.Errorf("app.log_format must be text or json, got %q", a.LogFormat)
	}
	return nil
}

func (s *ScanConfig) validate() error {
	if _, err := market.ParseTimeframe(s.Timeframe); err != nil {
		return fmt.Errorf("scan.timeframe: %w", err)
	}
	if _, err := market.ParseTimeframe(s.DayTimeframe); err != nil {
		return fmt.Errorf("scan.day_timeframe: %w", err)
	}
	if s.PageLimit <= 0 {
		return fmt.Errorf("scan.page_limit must be > 0")
	}
	if s.DayWindowDays < 0 {
		return fmt.Errorf("scan.day_window_days must be >= 0")
	}
	for i, a := range s.Aliases {
		if strings.TrimSpace(a.Exchange) == "" || strings.TrimSpace(a.Connector) == "" {
			return fmt.Errorf("scan.aliases[%d] requires exchange and connector", i)
		}
	}
	for i, d := range s.Disabled {
		if strings.TrimSpace(d.Exchange) == "" {
			return fmt.Errorf("scan.disabled[%d] requires exchange", i)
		}
	}
	return nil
}

func (e ExchangeConfig) validate(id string) error {
	if e.PageLimit < 0 {
		return fmt.Errorf("exchanges.%s.page_limit must be >= 0", id)
	}
	if e.RequestsPerSecond < 0 {
		return fmt.Errorf("exchanges.%s.requests_per_second must be >= 0", id)
	}
	if e.TimeoutSeconds < 0 {
		return fmt.Errorf("exchanges.%s.timeout_seconds must be >= 0", id)
	}
	for _, kv := range e.Params {
		if k, _, ok := strings.Cut(kv, "="); !ok || strings.TrimSpace(k) == "" {
			return fmt.Errorf("exchanges.%s.params entry %q must be key=value", id, kv)
		}
	}
	return nil
}
