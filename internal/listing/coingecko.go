package listing

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"tgescan/internal/gateway/exchange"
	"tgescan/internal/gateway/restkit"

	"github.com/tidwall/gjson"
)

const defaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGeckoConfig 描述 CoinGecko 客户端参数。
type CoinGeckoConfig struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	ProxyURL          string
	RequestsPerSecond float64
}

// Coin is the part of a CoinGecko coin document a scan needs.
type Coin struct {
	ID          string
	Symbol      string
	Name        string
	GenesisDate string
	Tickers     []Ticker
}

type CoinGecko struct {
	rest *restkit.Client
}

func NewCoinGecko(cfg CoinGeckoConfig) (*CoinGecko, error) {
	s := exchange.Settings{
		RESTBaseURL:       cfg.BaseURL,
		HTTPTimeout:       cfg.Timeout,
		ProxyURL:          cfg.ProxyURL,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}.WithDefaults(exchange.Settings{
		RESTBaseURL:       defaultCoinGeckoURL,
		HTTPTimeout:       20 * time.Second,
		RequestsPerSecond: 0.5,
	})
	rest, err := restkit.New("coingecko", s)
	if err != nil {
		return nil, err
	}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		header := "x-cg-demo-api-key"
		if strings.Contains(s.RESTBaseURL, "pro-api") {
			header = "x-cg-pro-api-key"
		}
		rest.SetHeader(header, key)
	}
	return &CoinGecko{rest: rest}, nil
}

// Coin fetches /coins/{id} with tickers and nothing else.
func (c *CoinGecko) Coin(ctx context.Context, id string) (Coin, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Coin{}, fmt.Errorf("coin id is required")
	}
	q := url.Values{
		"localization":   {"false"},
		"tickers":        {"true"},
		"market_data":    {"false"},
		"community_data": {"false"},
		"developer_data": {"false"},
		"sparkline":      {"false"},
	}
	res, err := c.rest.GetJSON(ctx, "/coins/"+url.PathEscape(id), q)
	if err != nil {
		return Coin{}, err
	}
	return parseCoin(res), nil
}

// Match is one /search hit.
type Match struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Search returns projects whose ticker equals symbol, case-insensitively.
func (c *CoinGecko) Search(ctx context.Context, symbol string) ([]Match, error) {
	symbol = strings.TrimPrefix(strings.TrimSpace(symbol), "$")
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	res, err := c.rest.GetJSON(ctx, "/search", url.Values{"query": {symbol}})
	if err != nil {
		return nil, err
	}
	var out []Match
	for _, hit := range res.Get("coins").Array() {
		if !strings.EqualFold(hit.Get("symbol").String(), symbol) {
			continue
		}
		out = append(out, Match{
			ID:     hit.Get("id").String(),
			Symbol: hit.Get("symbol").String(),
			Name:   hit.Get("name").String(),
		})
	}
	return out, nil
}

func parseCoin(res gjson.Result) Coin {
	coin := Coin{
		ID:          res.Get("id").String(),
		Symbol:      res.Get("symbol").String(),
		Name:        res.Get("name").String(),
		GenesisDate: res.Get("genesis_date").String(),
	}
	for _, t := range res.Get("tickers").Array() {
		coin.Tickers = append(coin.Tickers, Ticker{
			MarketName:   t.Get("market.name").String(),
			Base:         t.Get("base").String(),
			Target:       t.Get("target").String(),
			Volume:       t.Get("volume").Float(),
			LastTradedAt: t.Get("last_traded_at").String(),
		})
	}
	return coin
}

// ExpectedTGE estimates the token generation time: the genesis date at UTC
// midnight, else the earliest ticker trade time. Nil when neither parses.
func ExpectedTGE(coin Coin) *int64 {
	if g := strings.TrimSpace(coin.GenesisDate); g != "" {
		if t, err := time.Parse("2006-01-02", g); err == nil {
			ms := t.UTC().UnixMilli()
			return &ms
		}
	}
	var earliest *int64
	for _, t := range coin.Tickers {
		ts, ok := parseTradeTime(t.LastTradedAt)
		if !ok {
			continue
		}
		if earliest == nil || ts < *earliest {
			v := ts
			earliest = &v
		}
	}
	return earliest
}

func parseTradeTime(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().UnixMilli(), true
		}
	}
	return 0, false
}
