package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"tgescan/internal/gateway/exchange"
	"tgescan/internal/gateway/restkit"
	"tgescan/internal/logger"
	"tgescan/internal/market"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"golang.org/x/time/rate"
)

// Connector 基于 go-binance SDK 实现 exchange.Connector。
type Connector struct {
	cfg     Config
	spot    *binance.Client
	futures *futures.Client
	limiter *rate.Limiter
}

func New(cfg Config) (*Connector, error) {
	final := cfg.withDefaults()
	httpClient, err := restkit.NewHTTPClient(final.Settings.HTTPTimeout, final.Settings.ProxyURL)
	if err != nil {
		return nil, err
	}
	spot := binance.NewClient("", "")
	spot.BaseURL = final.Settings.RESTBaseURL
	spot.HTTPClient = httpClient

	c := &Connector{
		cfg:     final,
		spot:    spot,
		limiter: restkit.NewLimiter(final.Settings.RequestsPerSecond),
	}
	if final.FuturesBaseURL != "" {
		fut := futures.NewClient("", "")
		fut.BaseURL = final.FuturesBaseURL
		fut.HTTPClient = httpClient
		c.futures = fut
	}
	return c, nil
}

func (c *Connector) ID() string { return c.cfg.ID }

func (c *Connector) PageLimit() int { return c.cfg.Settings.PageLimit }

func (c *Connector) ParseTimeframe(tf string) (int64, error) {
	return market.ParseTimeframe(tf)
}

func (c *Connector) LoadMarkets(ctx context.Context) ([]market.Instrument, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	info, err := c.spot.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s exchange info: %w", c.cfg.ID, err)
	}
	out := make([]market.Instrument, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		out = append(out, market.Instrument{
			Symbol: s.Symbol,
			Base:   s.BaseAsset,
			Quote:  s.QuoteAsset,
			Spot:   s.IsSpotTradingAllowed,
			Active: strings.EqualFold(s.Status, "TRADING"),
		})
	}
	if c.futures == nil {
		return out, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	finfo, err := c.futures.NewExchangeInfoService().Do(ctx)
	if err != nil {
		// 合约市场仅作兜底，失败时保留现货列表。
		logger.Warnf("[%s] futures exchange info failed: %v", c.cfg.ID, err)
		return out, nil
	}
	for _, s := range finfo.Symbols {
		if string(s.ContractType) != "PERPETUAL" {
			continue
		}
		out = append(out, market.Instrument{
			Symbol: s.Symbol,
			Base:   s.BaseAsset,
			Quote:  s.QuoteAsset,
			Spot:   false,
			Active: strings.EqualFold(s.Status, "TRADING"),
		})
	}
	return out, nil
}

func (c *Connector) FetchOHLCV(ctx context.Context, req exchange.FetchRequest) ([]market.Candle, error) {
	req = c.cfg.Settings.Apply(req)
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval := strings.TrimSpace(req.Timeframe)
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	// SDK 没有通用参数入口，额外参数经由 HTTP 客户端追加到查询串。
	ctx = restkit.WithParams(ctx, req.Params)
	if !req.Spot {
		if c.futures == nil {
			return nil, fmt.Errorf("%s has no derivatives market for %s", c.cfg.ID, symbol)
		}
		kls, err := c.futures.NewKlinesService().Symbol(symbol).Interval(interval).
			StartTime(req.Since).Limit(req.Limit).Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s futures klines %s: %w", c.cfg.ID, symbol, err)
		}
		out := make([]market.Candle, 0, len(kls))
		for _, kl := range kls {
			if kl == nil {
				continue
			}
			cd, err := toCandle(kl.OpenTime, kl.Open, kl.High, kl.Low, kl.Close, kl.Volume)
			if err != nil {
				return nil, fmt.Errorf("%s futures klines %s: %w", c.cfg.ID, symbol, err)
			}
			out = append(out, cd)
		}
		return market.Normalize(out), nil
	}
	kls, err := c.spot.NewKlinesService().Symbol(symbol).Interval(interval).
		StartTime(req.Since).Limit(req.Limit).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s klines %s: %w", c.cfg.ID, symbol, err)
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		cd, err := toCandle(kl.OpenTime, kl.Open, kl.High, kl.Low, kl.Close, kl.Volume)
		if err != nil {
			return nil, fmt.Errorf("%s klines %s: %w", c.cfg.ID, symbol, err)
		}
		out = append(out, cd)
	}
	return market.Normalize(out), nil
}

func toCandle(openTime int64, o, h, l, cl, v string) (market.Candle, error) {
	var vals [5]float64
	for i, raw := range []string{o, h, l, cl, v} {
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return market.Candle{}, fmt.Errorf("candle %d: bad number %q", openTime, raw)
		}
		vals[i] = f
	}
	return market.Candle{
		OpenTime: openTime,
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, nil
}
