package gate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"tgescan/internal/gateway/exchange"
	"tgescan/internal/gateway/restkit"
	"tgescan/internal/logger"
	"tgescan/internal/market"

	"github.com/antihax/optional"
	gateapi "github.com/gateio/gateapi-go/v7"
	"golang.org/x/time/rate"
)

// Connector wraps the gateapi-go REST client. Spot pairs use the "ABC_USDT"
// form; USDT-settled perpetuals share the same naming.
type Connector struct {
	cfg     exchange.Settings
	rest    *gateapi.APIClient
	limiter *rate.Limiter
}

func New(s exchange.Settings) (exchange.Connector, error) {
	final := withDefaults(s)
	httpClient, err := restkit.NewHTTPClient(final.HTTPTimeout, final.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("gate: %w", err)
	}
	conf := gateapi.NewConfiguration()
	conf.BasePath = final.RESTBaseURL
	conf.HTTPClient = httpClient
	return &Connector{
		cfg:     final,
		rest:    gateapi.NewAPIClient(conf),
		limiter: restkit.NewLimiter(final.RequestsPerSecond),
	}, nil
}

func (c *Connector) ID() string { return "gate" }

func (c *Connector) PageLimit() int { return c.cfg.PageLimit }

func (c *Connector) ParseTimeframe(tf string) (int64, error) {
	return market.ParseTimeframe(tf)
}

func (c *Connector) LoadMarkets(ctx context.Context) ([]market.Instrument, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	pairs, _, err := c.rest.SpotApi.ListCurrencyPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("gate list currency pairs: %w", err)
	}
	out := make([]market.Instrument, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, market.Instrument{
			Symbol: p.Id,
			Base:   p.Base,
			Quote:  p.Quote,
			Spot:   true,
			Active: p.TradeStatus == "tradable",
		})
	}
	if c.cfg.SpotOnly {
		return out, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	contracts, _, err := c.rest.FuturesApi.ListFuturesContracts(ctx, gateSettle, nil)
	if err != nil {
		logger.Warnf("[gate] list futures contracts failed: %v", err)
		return out, nil
	}
	for _, ct := range contracts {
		base, quote, ok := strings.Cut(ct.Name, "_")
		if !ok {
			continue
		}
		out = append(out, market.Instrument{
			Symbol: ct.Name,
			Base:   base,
			Quote:  quote,
			Spot:   false,
			Active: !ct.InDelisting,
		})
	}
	return out, nil
}

// FetchOHLCV asks for the window [since, since+(limit-1)*tf]; gate rejects
// limit together with from/to.
func (c *Connector) FetchOHLCV(ctx context.Context, req exchange.FetchRequest) ([]market.Candle, error) {
	req = c.cfg.Apply(req)
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	tfMillis, err := c.ParseTimeframe(req.Timeframe)
	if err != nil {
		return nil, err
	}
	from := req.Since / 1000
	to := (req.Since + int64(req.Limit-1)*tfMillis) / 1000
	interval := gateInterval(req.Timeframe)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	// gateapi opts cover only the documented fields; extra params ride on the
	// HTTP client.
	ctx = restkit.WithParams(ctx, req.Params)
	if !req.Spot {
		return c.fetchFutures(ctx, symbol, interval, from, to)
	}
	rows, _, err := c.rest.SpotApi.ListCandlesticks(ctx, symbol, &gateapi.ListCandlesticksOpts{
		From:     optional.NewInt64(from),
		To:       optional.NewInt64(to),
		Interval: optional.NewString(interval),
	})
	if err != nil {
		return nil, fmt.Errorf("gate candlesticks %s: %w", symbol, err)
	}
	out := make([]market.Candle, 0, len(rows))
	for _, row := range rows {
		// [t, quote volume, close, high, low, open, base volume, closed]
		if len(row) < 7 {
			continue
		}
		ts, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			continue
		}
		vals, err := parseFloats(row[5], row[3], row[4], row[2], row[6])
		if err != nil {
			return nil, fmt.Errorf("gate candlesticks %s at %d: %w", symbol, ts, err)
		}
		out = append(out, market.Candle{
			OpenTime: ts * 1000,
			Open:     vals[0],
			High:     vals[1],
			Low:      vals[2],
			Close:    vals[3],
			Volume:   vals[4],
		})
	}
	return market.Normalize(out), nil
}

func (c *Connector) fetchFutures(ctx context.Context, contract, interval string, from, to int64) ([]market.Candle, error) {
	kls, _, err := c.rest.FuturesApi.ListFuturesCandlesticks(ctx, gateSettle, contract, &gateapi.ListFuturesCandlesticksOpts{
		From:     optional.NewInt64(from),
		To:       optional.NewInt64(to),
		Interval: optional.NewString(interval),
	})
	if err != nil {
		return nil, fmt.Errorf("gate futures candlesticks %s: %w", contract, err)
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		vals, err := parseFloats(kl.O, kl.H, kl.L, kl.C, kl.Sum)
		if err != nil {
			return nil, fmt.Errorf("gate futures candlesticks %s at %d: %w", contract, int64(kl.T), err)
		}
		closePrice := vals[3]
		// Sum 为计价币成交额，换算成基础币数量。
		volume := 0.0
		if closePrice > 0 {
			volume = vals[4] / closePrice
		}
		out = append(out, market.Candle{
			OpenTime: int64(kl.T * 1000),
			Open:     vals[0],
			High:     vals[1],
			Low:      vals[2],
			Close:    closePrice,
			Volume:   volume,
		})
	}
	return market.Normalize(out), nil
}

func parseFloats(raw ...string) ([]float64, error) {
	out := make([]float64, len(raw))
	for i, v := range raw {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", v)
		}
		out[i] = f
	}
	return out, nil
}
