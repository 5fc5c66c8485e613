package binance

import (
	"time"

	"tgescan/internal/gateway/exchange"
)

const (
	defaultSpotREST    = "https://api.binance.com"
	defaultFuturesREST = "https://fapi.binance.com"
	defaultUSREST      = "https://api.binance.us"
	maxKlineLimit      = 1000
)

// Config 选择现货/合约 REST 入口；FuturesBaseURL 为空表示不加载合约市场。
type Config struct {
	ID             string
	Settings       exchange.Settings
	FuturesBaseURL string
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.ID == "" {
		out.ID = "binance"
	}
	out.Settings = out.Settings.WithDefaults(exchange.Settings{
		RESTBaseURL:       defaultSpotREST,
		HTTPTimeout:       15 * time.Second,
		PageLimit:         maxKlineLimit,
		RequestsPerSecond: 10,
	})
	if out.Settings.SpotOnly {
		out.FuturesBaseURL = ""
	}
	return out
}

// NewSpotAndFutures builds the binance.com connector: spot markets first,
// USDⓈ-M perpetuals as the fallback market class.
func NewSpotAndFutures(s exchange.Settings) (exchange.Connector, error) {
	return build(Config{ID: "binance", Settings: s, FuturesBaseURL: defaultFuturesREST})
}

// NewUS builds the Binance US connector, which has no derivatives.
func NewUS(s exchange.Settings) (exchange.Connector, error) {
	if s.RESTBaseURL == "" {
		s.RESTBaseURL = defaultUSREST
	}
	return build(Config{ID: "binanceus", Settings: s})
}

func build(cfg Config) (exchange.Connector, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}
