// Package mexc implements the MEXC spot connector on raw REST.
package mexc

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
)

const (
	defaultREST  = "https://api.mexc.com"
	maxPageLimit = 1000
)

type Connector struct {
	cfg  exchange.Settings
	rest *restkit.Client
}

func New(s exchange.Settings) (exchange.Connector, error) {
	final := s.WithDefaults(exchange.Settings{
		RESTBaseURL:       defaultREST,
		HTTPTimeout:       15 * time.Second,
		PageLimit:         maxPageLimit,
		RequestsPerSecond: 10,
		SpotOnly:          true,
	})
	rest, err := restkit.New("mexc", final)
	if err != nil {
		return nil, err
	}
	return &Connector{cfg: final, rest: rest}, nil
}

func (c *Connector) ID() string { return "mexc" }

func (c *Connector) PageLimit() int { return c.cfg.PageLimit }

func (c *Connector) ParseTimeframe(tf string) (int64, error) {
	return market.ParseTimeframe(tf)
}

func (c *Connector) LoadMarkets(ctx context.Context) ([]market.Instrument, error) {
	res, err := c.rest.GetJSON(ctx, "/api/v3/exchangeInfo", nil)
	if err != nil {
		return nil, err
	}
	symbols := res.Get("symbols").Array()
	out := make([]market.Instrument, 0, len(symbols))
	for _, s := range symbols {
		status := s.Get("status").String()
		out = append(out, market.Instrument{
			Symbol: s.Get("symbol").String(),
			Base:   s.Get("baseAsset").String(),
			Quote:  s.Get("quoteAsset").String(),
			Spot:   true,
			Active: status == "1" || strings.EqualFold(status, "ENABLED") || strings.EqualFold(status, "TRADING"),
		})
	}
	return out, nil
}

func (c *Connector) FetchOHLCV(ctx context.Context, req exchange.FetchRequest) ([]market.Candle, error) {
	req = c.cfg.Apply(req)
	if strings.TrimSpace(req.Symbol) == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if !req.Spot {
		return nil, fmt.Errorf("mexc connector serves spot markets only")
	}
	tfMillis, err := c.ParseTimeframe(req.Timeframe)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("symbol", req.Symbol)
	q.Set("interval", intervalFor(req.Timeframe))
	q.Set("startTime", strconv.FormatInt(req.Since, 10))
	q.Set("endTime", strconv.FormatInt(req.Since+int64(req.Limit)*tfMillis-1, 10))
	q.Set("limit", strconv.Itoa(req.Limit))
	restkit.SetParams(q, req.Params)

	res, err := c.rest.GetJSON(ctx, "/api/v3/klines", q)
	if err != nil {
		return nil, err
	}
	if !res.IsArray() {
		return nil, fmt.Errorf("mexc klines %s: %s", req.Symbol, res.Get("msg").String())
	}
	rows := res.Array()
	out := make([]market.Candle, 0, len(rows))
	for _, row := range rows {
		// [openTime, open, high, low, close, volume, closeTime, quoteVolume]
		cols := row.Array()
		if len(cols) < 6 {
			continue
		}
		out = append(out, market.Candle{
			OpenTime: cols[0].Int(),
			Open:     cols[1].Float(),
			High:     cols[2].Float(),
			Low:      cols[3].Float(),
			Close:    cols[4].Float(),
			Volume:   cols[5].Float(),
		})
	}
	return market.Normalize(out), nil
}

// intervalFor maps hourly bars to MEXC's "60m" and weeks/months to "1W"/"1M".
func intervalFor(tf string) string {
	switch strings.TrimSpace(tf) {
	case "1h":
		return "60m"
	case "1w":
		return "1W"
	default:
		return tf
	}
}
