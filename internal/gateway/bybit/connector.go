// Package bybit implements the Bybit v5 market connector (spot plus linear
// perpetuals) on raw REST.
package bybit

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tgescan/internal/gateway/exchange"
	"tgescan/internal/gateway/restkit"
	"tgescan/internal/logger"
	"tgescan/internal/market"

	"github.com/tidwall/gjson"
)

const (
	defaultREST  = "https://api.bybit.com"
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
	})
	rest, err := restkit.New("bybit", final)
	if err != nil {
		return nil, err
	}
	return &Connector{cfg: final, rest: rest}, nil
}

func (c *Connector) ID() string { return "bybit" }

func (c *Connector) PageLimit() int { return c.cfg.PageLimit }

func (c *Connector) ParseTimeframe(tf string) (int64, error) {
	return market.ParseTimeframe(tf)
}

func (c *Connector) LoadMarkets(ctx context.Context) ([]market.Instrument, error) {
	out, err := c.instruments(ctx, "spot")
	if err != nil {
		return nil, err
	}
	if c.cfg.SpotOnly {
		return out, nil
	}
	linear, err := c.instruments(ctx, "linear")
	if err != nil {
		logger.Warnf("[bybit] linear instruments failed: %v", err)
		return out, nil
	}
	return append(out, linear...), nil
}

func (c *Connector) instruments(ctx context.Context, category string) ([]market.Instrument, error) {
	var out []market.Instrument
	cursor := ""
	for {
		q := url.Values{"category": {category}, "limit": {"1000"}}
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		res, err := c.rest.GetJSON(ctx, "/v5/market/instruments-info", q)
		if err != nil {
			return nil, err
		}
		result, err := unwrap(res)
		if err != nil {
			return nil, err
		}
		for _, item := range result.Get("list").Array() {
			if category == "linear" && item.Get("contractType").String() != "LinearPerpetual" {
				continue
			}
			out = append(out, market.Instrument{
				Symbol: item.Get("symbol").String(),
				Base:   item.Get("baseCoin").String(),
				Quote:  item.Get("quoteCoin").String(),
				Spot:   category == "spot",
				Active: item.Get("status").String() == "Trading",
			})
		}
		next := result.Get("nextPageCursor").String()
		if next == "" || next == cursor {
			return out, nil
		}
		cursor = next
	}
}

func (c *Connector) FetchOHLCV(ctx context.Context, req exchange.FetchRequest) ([]market.Candle, error) {
	req = c.cfg.Apply(req)
	if strings.TrimSpace(req.Symbol) == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	tfMillis, err := c.ParseTimeframe(req.Timeframe)
	if err != nil {
		return nil, err
	}
	interval, err := intervalFor(req.Timeframe)
	if err != nil {
		return nil, err
	}
	category := "spot"
	if !req.Spot {
		category = "linear"
	}
	q := url.Values{}
	q.Set("category", category)
	q.Set("symbol", req.Symbol)
	q.Set("interval", interval)
	q.Set("start", strconv.FormatInt(req.Since, 10))
	q.Set("end", strconv.FormatInt(req.Since+int64(req.Limit)*tfMillis-1, 10))
	q.Set("limit", strconv.Itoa(req.Limit))
	restkit.SetParams(q, req.Params)

	res, err := c.rest.GetJSON(ctx, "/v5/market/kline", q)
	if err != nil {
		return nil, err
	}
	result, err := unwrap(res)
	if err != nil {
		return nil, fmt.Errorf("bybit kline %s: %w", req.Symbol, err)
	}
	rows := result.Get("list").Array()
	out := make([]market.Candle, 0, len(rows))
	for _, row := range rows {
		// [startTime, open, high, low, close, volume, turnover]
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

func unwrap(res gjson.Result) (gjson.Result, error) {
	if code := res.Get("retCode").Int(); code != 0 {
		return gjson.Result{}, fmt.Errorf("bybit error retCode=%d retMsg=%s", code, res.Get("retMsg").String())
	}
	return res.Get("result"), nil
}

// intervalFor maps "15m" to "15", "4h" to "240" and "1d" to "D".
func intervalFor(tf string) (string, error) {
	tf = strings.TrimSpace(tf)
	if len(tf) < 2 {
		return "", fmt.Errorf("unsupported timeframe: %q", tf)
	}
	n, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || n <= 0 {
		return "", fmt.Errorf("unsupported timeframe: %q", tf)
	}
	switch tf[len(tf)-1] {
	case 'm':
		return strconv.Itoa(n), nil
	case 'h':
		return strconv.Itoa(n * 60), nil
	case 'd':
		if n == 1 {
			return "D", nil
		}
	case 'w':
		if n == 1 {
			return "W", nil
		}
	case 'M':
		if n == 1 {
			return "M", nil
		}
	}
	return "", fmt.Errorf("unsupported timeframe: %q", tf)
}
