// Package okx implements the OKX v5 public market connector on raw REST.
package okx

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
	defaultREST  = "https://www.okx.com"
	maxPageLimit = 100
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
		RequestsPerSecond: 8,
	})
	rest, err := restkit.New("okx", final)
	if err != nil {
		return nil, err
	}
	return &Connector{cfg: final, rest: rest}, nil
}

func (c *Connector) ID() string { return "okx" }

func (c *Connector) PageLimit() int { return c.cfg.PageLimit }

func (c *Connector) ParseTimeframe(tf string) (int64, error) {
	return market.ParseTimeframe(tf)
}

func (c *Connector) LoadMarkets(ctx context.Context) ([]market.Instrument, error) {
	spot, err := c.instruments(ctx, "SPOT")
	if err != nil {
		return nil, err
	}
	if c.cfg.SpotOnly {
		return spot, nil
	}
	swaps, err := c.instruments(ctx, "SWAP")
	if err != nil {
		logger.Warnf("[okx] swap instruments failed: %v", err)
		return spot, nil
	}
	return append(spot, swaps...), nil
}

func (c *Connector) instruments(ctx context.Context, instType string) ([]market.Instrument, error) {
	res, err := c.rest.GetJSON(ctx, "/api/v5/public/instruments", url.Values{"instType": {instType}})
	if err != nil {
		return nil, err
	}
	data, err := unwrap(res)
	if err != nil {
		return nil, err
	}
	out := make([]market.Instrument, 0, len(data))
	for _, item := range data {
		inst := market.Instrument{
			Symbol: item.Get("instId").String(),
			Base:   item.Get("baseCcy").String(),
			Quote:  item.Get("quoteCcy").String(),
			Spot:   instType == "SPOT",
			Active: item.Get("state").String() == "live",
		}
		if !inst.Spot {
			base, quote, ok := strings.Cut(item.Get("uly").String(), "-")
			if !ok {
				continue
			}
			inst.Base, inst.Quote = base, quote
		}
		out = append(out, inst)
	}
	return out, nil
}

// FetchOHLCV reads history-candles between before (exclusive) and after
// (exclusive). OKX answers newest first.
func (c *Connector) FetchOHLCV(ctx context.Context, req exchange.FetchRequest) ([]market.Candle, error) {
	req = c.cfg.Apply(req)
	if strings.TrimSpace(req.Symbol) == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	tfMillis, err := c.ParseTimeframe(req.Timeframe)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("instId", req.Symbol)
	q.Set("bar", barFor(req.Timeframe))
	q.Set("before", strconv.FormatInt(req.Since-1, 10))
	q.Set("after", strconv.FormatInt(req.Since+int64(req.Limit)*tfMillis, 10))
	q.Set("limit", strconv.Itoa(req.Limit))
	restkit.SetParams(q, req.Params)

	res, err := c.rest.GetJSON(ctx, "/api/v5/market/history-candles", q)
	if err != nil {
		return nil, err
	}
	rows, err := unwrap(res)
	if err != nil {
		return nil, fmt.Errorf("okx candles %s: %w", req.Symbol, err)
	}
	out := make([]market.Candle, 0, len(rows))
	for _, row := range rows {
		// [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm]
		cols := row.Array()
		if len(cols) < 7 {
			continue
		}
		volume := cols[5].Float()
		if !req.Spot {
			// 合约 vol 为张数，volCcy 才是基础币数量。
			volume = cols[6].Float()
		}
		out = append(out, market.Candle{
			OpenTime: cols[0].Int(),
			Open:     cols[1].Float(),
			High:     cols[2].Float(),
			Low:      cols[3].Float(),
			Close:    cols[4].Float(),
			Volume:   volume,
		})
	}
	return market.Normalize(out), nil
}

func unwrap(res gjson.Result) ([]gjson.Result, error) {
	if code := res.Get("code").String(); code != "0" {
		return nil, fmt.Errorf("okx error code=%s msg=%s", code, res.Get("msg").String())
	}
	return res.Get("data").Array(), nil
}

// barFor maps "1h" to "1H" and daily and longer bars to their UTC-anchored
// variants so day boundaries match other exchanges.
func barFor(tf string) string {
	tf = strings.TrimSpace(tf)
	if tf == "" {
		return tf
	}
	n, unit := tf[:len(tf)-1], tf[len(tf)-1]
	switch unit {
	case 'h', 'H':
		return n + "H"
	case 'd', 'D':
		return n + "Dutc"
	case 'w', 'W':
		return n + "Wutc"
	case 'M':
		return n + "Mutc"
	default:
		return tf
	}
}
