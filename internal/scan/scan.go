// Package scan drives the per-exchange pipeline: build a connector, resolve
// the market, collect its history and statistics. Exchanges are processed
// one at a time.
package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tgescan/internal/collector"
	"tgescan/internal/gateway/exchange"
	"tgescan/internal/listing"
	"tgescan/internal/logger"
	"tgescan/internal/market"
	"tgescan/internal/resolver"
)

// Result is the single record a scan produces for each listing.
type Result struct {
	ExchangeName string           `json:"exchange_name"`
	ConnectorID  string           `json:"connector_id,omitempty"`
	Base         string           `json:"base"`
	Quote        string           `json:"quote"`
	Symbol       string           `json:"symbol,omitempty"`
	Spot         bool             `json:"spot"`
	Stats        *collector.Stats `json:"stats,omitempty"`
	Error        string           `json:"error,omitempty"`
	Series       market.Series    `json:"-"`
}

func (r Result) Pair() string { return market.Pair(r.Base, r.Quote) }

func (r Result) OK() bool { return r.Stats != nil && r.Error == "" }

type Request struct {
	Listings    []listing.Listing
	ExpectedTGE *int64
}

// Scanner is safe for concurrent Run calls; each call builds its own
// connectors.
type Scanner struct {
	registry  *exchange.Registry
	settings  map[string]exchange.Settings
	collector *collector.Collector
}

func NewScanner(reg *exchange.Registry, settings map[string]exchange.Settings, c *collector.Collector) *Scanner {
	if settings == nil {
		settings = map[string]exchange.Settings{}
	}
	return &Scanner{registry: reg, settings: settings, collector: c}
}

// Run returns exactly one result per listing, in listing order.
func (s *Scanner) Run(ctx context.Context, req Request) []Result {
	results := make([]Result, 0, len(req.Listings))
	for i, l := range req.Listings {
		start := time.Now()
		res := s.ScanOne(ctx, l, req.ExpectedTGE)
		if res.Error != "" {
			logger.Warnf("[scan %d/%d] %s %s: %s", i+1, len(req.Listings), l.ExchangeName, res.Pair(), res.Error)
		} else {
			logger.Infof("[scan %d/%d] %s %s: tge=%s candles=%d (%s)", i+1, len(req.Listings), l.ExchangeName,
				res.Pair(), market.FormatMillis(res.Stats.TGETime), len(res.Series), time.Since(start).Round(time.Millisecond))
		}
		results = append(results, res)
	}
	return results
}

// ScanOne handles one exchange. Errors land in Result.Error; they never
// abort other exchanges.
func (s *Scanner) ScanOne(ctx context.Context, l listing.Listing, expectedTGE *int64) Result {
	out := Result{
		ExchangeName: l.ExchangeName,
		ConnectorID:  l.ConnectorID,
		Base:         strings.ToUpper(strings.TrimSpace(l.Base)),
		Quote:        strings.ToUpper(strings.TrimSpace(l.Quote)),
	}
	if l.DisabledReason != "" {
		out.Error = "disabled: " + l.DisabledReason
		return out
	}
	if l.ConnectorID == "" || !s.registry.Has(l.ConnectorID) {
		out.Error = exchange.ErrUnsupported.Error()
		return out
	}
	if err := ctx.Err(); err != nil {
		out.Error = err.Error()
		return out
	}
	conn, err := s.registry.Build(l.ConnectorID, s.settings[strings.ToLower(l.ConnectorID)])
	if err != nil {
		out.Error = err.Error()
		return out
	}
	res, err := resolver.Resolve(ctx, conn, out.Base, out.Quote)
	if err != nil {
		out.Error = describe(err)
		return out
	}
	out.Symbol = res.Market.Symbol
	out.Spot = res.Market.Spot
	outcome, err := s.collector.Collect(ctx, res, expectedTGE)
	if err != nil {
		out.Error = describe(err)
		return out
	}
	stats := outcome.Stats
	out.Stats = &stats
	out.Series = outcome.Series
	return out
}

func describe(err error) string {
	switch {
	case errors.Is(err, resolver.ErrMarketNotFound):
		return fmt.Sprintf("pair not listed: %v", err)
	case errors.Is(err, collector.ErrEmptyHistory):
		return "exchange returned no OHLCV"
	default:
		return err.Error()
	}
}
