// Package exchange defines the capability every exchange connector exposes to
// the resolver and the history collector, plus the registry that builds
// connectors by id.
package exchange

import (
	"context"

	"tgescan/internal/market"
)

// Connector is the per-exchange capability set. Implementations page through
// candles one request at a time and never coordinate with other connectors.
type Connector interface {
	ID() string

	// LoadMarkets returns the exchange's market list.
	LoadMarkets(ctx context.Context) ([]market.Instrument, error)

	// FetchOHLCV returns at most req.Limit candles with open time >= req.Since,
	// ascending. An empty slice means no data at or after Since.
	FetchOHLCV(ctx context.Context, req FetchRequest) ([]market.Candle, error)

	// ParseTimeframe converts "15m", "1d" ... into milliseconds.
	ParseTimeframe(tf string) (int64, error)

	// PageLimit is the maximum page size the exchange honours.
	PageLimit() int
}

// FetchRequest 描述一次远端 K 线请求。
type FetchRequest struct {
	Symbol    string
	Spot      bool
	Timeframe string
	Since     int64
	Limit     int
	Params    map[string]string
}
