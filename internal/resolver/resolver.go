// Package resolver maps a token's base/quote pair to an exchange-native
// market, preferring spot.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"tgescan/internal/gateway/exchange"
	"tgescan/internal/market"
)

// ErrMarketNotFound means the exchange lists no market for the pair.
var ErrMarketNotFound = errors.New("market not found")

// Resolution binds a resolved market to the connector that serves it.
type Resolution struct {
	Market    market.Market
	Connector exchange.Connector
	PageLimit int
}

// TimeframeMillis delegates timeframe parsing to the connector.
func (r Resolution) TimeframeMillis(tf string) (int64, error) {
	return r.Connector.ParseTimeframe(tf)
}

// Resolve loads conn's market list and picks the market for base/quote.
// Spot wins; a non-spot match is used only when no spot match exists.
func Resolve(ctx context.Context, conn exchange.Connector, base, quote string) (Resolution, error) {
	if conn == nil {
		return Resolution{}, fmt.Errorf("nil connector")
	}
	base = strings.TrimSpace(base)
	quote = strings.TrimSpace(quote)
	if base == "" || quote == "" {
		return Resolution{}, fmt.Errorf("base and quote are required")
	}
	instruments, err := conn.LoadMarkets(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("load %s markets: %w", conn.ID(), err)
	}
	inst, ok := Pick(instruments, base, quote)
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %s on %s", ErrMarketNotFound, market.Pair(base, quote), conn.ID())
	}
	return Resolution{
		Market: market.Market{
			Exchange: conn.ID(),
			Base:     strings.ToUpper(base),
			Quote:    strings.ToUpper(quote),
			Symbol:   inst.Symbol,
			Spot:     inst.Spot,
		},
		Connector: conn,
		PageLimit: conn.PageLimit(),
	}, nil
}

// Pick selects the instrument for base/quote. Within the winning class
// (spot, else non-spot) the order is: active first, higher quote volume,
// then the lexicographically smallest symbol.
func Pick(instruments []market.Instrument, base, quote string) (market.Instrument, bool) {
	var spot, other []market.Instrument
	for _, inst := range instruments {
		if !inst.Matches(base, quote) || inst.Symbol == "" {
			continue
		}
		if inst.Spot {
			spot = append(spot, inst)
		} else {
			other = append(other, inst)
		}
	}
	candidates := spot
	if len(candidates) == 0 {
		candidates = other
	}
	if len(candidates) == 0 {
		return market.Instrument{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Active != b.Active {
			return a.Active
		}
		if a.QuoteVolume != b.QuoteVolume {
			return a.QuoteVolume > b.QuoteVolume
		}
		return a.Symbol < b.Symbol
	})
	return candidates[0], true
}
