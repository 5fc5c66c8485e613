// Package listing turns a token's exchange tickers into the per-exchange
// (display name, base, quote) triples the scan runs over.
package listing

import "strings"

// Listing is one exchange entry of a scan.
type Listing struct {
	ExchangeName   string  `json:"exchange_name" yaml:"exchange"`
	Base           string  `json:"base" yaml:"base"`
	Quote          string  `json:"quote" yaml:"quote"`
	Volume         float64 `json:"volume,omitempty" yaml:"volume,omitempty"`
	ConnectorID    string  `json:"connector_id,omitempty" yaml:"connector,omitempty"`
	DisabledReason string  `json:"disabled_reason,omitempty" yaml:"disabled_reason,omitempty"`
}

// Ticker is the subset of a CoinGecko ticker the listing needs.
type Ticker struct {
	MarketName   string
	Base         string
	Target       string
	Volume       float64
	LastTradedAt string
}

// defaultAliases maps CoinGecko exchange display names to connector ids.
var defaultAliases = map[string]string{
	"Binance":           "binance",
	"Binance US":        "binanceus",
	"OKX":               "okx",
	"OKX (Spot)":        "okx",
	"Bybit":             "bybit",
	"KuCoin":            "kucoin",
	"Gate":              "gate",
	"Gate.io":           "gate",
	"Gate (Spot)":       "gate",
	"MEXC":              "mexc",
	"BitMart":           "bitmart",
	"Bitget":            "bitget",
	"Coinbase Exchange": "coinbase",
	"Kraken":            "kraken",
}

// DefaultAliases returns a copy of the built-in display-name table.
func DefaultAliases() map[string]string {
	out := make(map[string]string, len(defaultAliases))
	for k, v := range defaultAliases {
		out[k] = v
	}
	return out
}

// MergeAliases overlays extra display-name mappings on the defaults.
func MergeAliases(extra map[string]string) map[string]string {
	out := DefaultAliases()
	for k, v := range extra {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out[k] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

var dexTerms = []string{"swap", "uniswap", "pancake", "sushiswap"}

// IsDEXName reports whether a market name looks like a decentralized venue.
func IsDEXName(name string) bool {
	n := strings.ToLower(name)
	for _, term := range dexTerms {
		if strings.Contains(n, term) {
			return true
		}
	}
	return false
}

// BuildListings keeps one centralized-exchange ticker per exchange, the one
// with the highest volume, in first-seen exchange order.
func BuildListings(tickers []Ticker, aliases, disabled map[string]string) []Listing {
	byName := make(map[string]int)
	var out []Listing
	for _, t := range tickers {
		name := strings.TrimSpace(t.MarketName)
		if name == "" || IsDEXName(name) {
			continue
		}
		base, quote := strings.TrimSpace(t.Base), strings.TrimSpace(t.Target)
		if base == "" || quote == "" {
			continue
		}
		idx, seen := byName[name]
		if seen && t.Volume <= out[idx].Volume {
			continue
		}
		l := Listing{ExchangeName: name, Base: base, Quote: quote, Volume: t.Volume}
		if reason, off := disabled[name]; off {
			l.DisabledReason = reason
			if l.DisabledReason == "" {
				l.DisabledReason = "disabled"
			}
		} else {
			l.ConnectorID = aliases[name]
		}
		if seen {
			out[idx] = l
			continue
		}
		byName[name] = len(out)
		out = append(out, l)
	}
	return out
}

// Attach fills connector ids for listings that name only an exchange.
func Attach(listings []Listing, aliases, disabled map[string]string) []Listing {
	out := make([]Listing, len(listings))
	for i, l := range listings {
		if reason, off := disabled[l.ExchangeName]; off {
			l.ConnectorID = ""
			l.DisabledReason = reason
			if l.DisabledReason == "" {
				l.DisabledReason = "disabled"
			}
		} else if l.ConnectorID == "" {
			l.ConnectorID = aliases[l.ExchangeName]
		}
		out[i] = l
	}
	return out
}
