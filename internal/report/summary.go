// Package report renders scan results: the console table, the totals and
// anchor lines, and the CSV exports.
package report

import (
	"tgescan/internal/market"
	"tgescan/internal/scan"
)

// Summary carries the cross-exchange figures printed under the table.
type Summary struct {
	Earliest      *Anchor `json:"earliest,omitempty"`
	Anchor        *Anchor `json:"anchor,omitempty"`
	TotalQuoteVol float64 `json:"total_quote_volume"`
	Succeeded     int     `json:"succeeded"`
	Failed        int     `json:"failed"`
}

// Anchor names the exchange with the earliest TGE candle.
type Anchor struct {
	ExchangeName string `json:"exchange_name"`
	TGETime      int64  `json:"tge_time"`
}

func (a Anchor) String() string {
	return a.ExchangeName + " " + market.FormatMillis(a.TGETime)
}

// Summarize finds the earliest listing among successful results and sums
// the first-candle quote volume. Every result comes from a centralized
// exchange, so the earliest listing is also the CEX anchor.
func Summarize(results []scan.Result) Summary {
	var s Summary
	for _, r := range results {
		if !r.OK() {
			s.Failed++
			continue
		}
		s.Succeeded++
		if v := r.Stats.First15mQuoteVolume; v != nil {
			s.TotalQuoteVol += *v
		}
		if s.Earliest == nil || r.Stats.TGETime < s.Earliest.TGETime {
			s.Earliest = &Anchor{ExchangeName: r.ExchangeName, TGETime: r.Stats.TGETime}
		}
	}
	if s.Earliest != nil {
		anchor := *s.Earliest
		s.Anchor = &anchor
	}
	return s
}
