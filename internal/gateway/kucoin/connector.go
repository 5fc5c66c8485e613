// Package kucoin implements the KuCoin spot connector on raw REST.
package kucoin

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tgescan/internal/gateway/exchange"
	"tgescan/internal/gateway/restkit"
	"tgescan/internal/market"

	"github.com/tidwall/gjson"
)

const (
	defaultREST  = "https://api.kucoin.com"
	maxPageLimit = 1500
)

var candleTypes = map[string]string{
	"1m": "1min", "3m": "3min", "5m": "5min", "15m": "15min", "30m": "30min",
	"1h": "1hour", "2h": "2hour", "4h": "4hour", "6h": "6hour", "8h": "8hour", "12h": "12hour",
	"1d": "1day", "1w": "1week", "1M": "1month",
}

type Connector struct {
	cfg  exchange.Settings
	rest *restkit.Client
}

func New(s exchange.Settings) (exchange.Connector, error) {
	final := s.WithDefaults(exchange.Settings{
		RESTBaseURL:       defaultREST,
		HTTPTimeout:       15 * time.Second,
		PageLimit:         maxPageLimit,
		RequestsPerSecond: 8,
		SpotOnly:          true,
	})
	rest, err := restkit.New("kucoin", final)
	if err != nil {
		return nil, err
	}
	return &Connector{cfg: final, rest: rest}, nil
}

func (c *Connector) ID() string { return "kucoin" }

func (c *Connector) PageLimit() int { return c.cfg.PageLimit }

func (c *Connector) ParseTimeframe(tf string) (int64, error) {
	return market.ParseTimeframe(tf)
}

func (c *Connector) LoadMarkets(ctx context.Context) ([]market.Instrument, error) {
	res, err := c.rest.GetJSON(ctx, "/api/v1/symbols", nil)
	if err != nil {
		return nil, err
	}
	data, err := unwrap(res)
	if err != nil {
		return nil, err
	}
	items := data.Array()
	out := make([]market.Instrument, 0, len(items))
	for _, item := range items {
		out = append(out, market.Instrument{
			Symbol: item.Get("symbol").String(),
			Base:   item.Get("baseCurrency").String(),
			Quote:  item.Get("quoteCurrency").String(),
			Spot:   true,
			Active: item.Get("enableTrading").Bool(),
		})
	}
	return out, nil
}

// FetchOHLCV has no limit parameter; the window [since, since+(limit-1)*tf]
// bounds the page instead. Times are in seconds.
func (c *Connector) FetchOHLCV(ctx context.Context, req exchange.FetchRequest) ([]market.Candle, error) {
	req = c.cfg.Apply(req)
	if strings.TrimSpace(req.Symbol) == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if !req.Spot {
		return nil, fmt.Errorf("kucoin connector serves spot markets only")
	}
	tfMillis, err := c.ParseTimeframe(req.Timeframe)
	if err != nil {
		return nil, err
	}
	typ, ok := candleTypes[strings.TrimSpace(req.Timeframe)]
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe: %q", req.Timeframe)
	}
	q := url.Values{}
	q.Set("symbol", req.Symbol)
	q.Set("type", typ)
	q.Set("startAt", strconv.FormatInt(req.Since/1000, 10))
	q.Set("endAt", strconv.FormatInt((req.Since+int64(req.Limit-1)*tfMillis)/1000, 10))
	restkit.SetParams(q, req.Params)

	res, err := c.rest.GetJSON(ctx, "/api/v1/market/candles", q)
	if err != nil {
		return nil, err
	}
	data, err := unwrap(res)
	if err != nil {
		return nil, fmt.Errorf("kucoin candles %s: %w", req.Symbol, err)
	}
	rows := data.Array()
	out := make([]market.Candle, 0, len(rows))
	for _, row := range rows {
		// [time, open, close, high, low, volume, turnover]
		cols := row.Array()
		if len(cols) < 6 {
			continue
		}
		openTime := cols[0].Int() * 1000
		if openTime < req.Since {
			continue
		}
		out = append(out, market.Candle{
			OpenTime: openTime,
			Open:     cols[1].Float(),
			Close:    cols[2].Float(),
			High:     cols[3].Float(),
			Low:      cols[4].Float(),
			Volume:   cols[5].Float(),
		})
	}
	return market.Normalize(out), nil
}

func unwrap(res gjson.Result) (gjson.Result, error) {
	if code := res.Get("code").String(); code != "200000" {
		return gjson.Result{}, fmt.Errorf("kucoin error code=%s msg=%s", code, res.Get("msg").String())
	}
	return res.Get("data"), nil
}
