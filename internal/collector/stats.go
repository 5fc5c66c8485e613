package collector

import (
	"fmt"

	"tgescan/internal/market"

	"github.com/shopspring/decimal"
)

// NoteAfterTGE marks exchanges whose history begins after the expected TGE.
const NoteAfterTGE = "exchange history starts after TGE"

// DayStatus reports how the day-candle stage ended.
type DayStatus int

const (
	DayNotRequested DayStatus = iota
	DayAvailable
	DayUnavailable
	DaySkippedAfterTGE
)

func (s DayStatus) String() string {
	switch s {
	case DayAvailable:
		return "available"
	case DayUnavailable:
		return "unavailable"
	case DaySkippedAfterTGE:
		return "skipped_after_tge"
	default:
		return "not_requested"
	}
}

func (s DayStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *DayStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "available":
		*s = DayAvailable
	case "unavailable":
		*s = DayUnavailable
	case "skipped_after_tge":
		*s = DaySkippedAfterTGE
	case "not_requested", "":
		*s = DayNotRequested
	default:
		return fmt.Errorf("unknown day status %q", string(b))
	}
	return nil
}

// Stats summarises the first candle of an exchange's history and the daily
// candle around it. Nil pointers mean the value is absent.
type Stats struct {
	TGETime             int64     `json:"tge_time"`
	TGEOpen             float64   `json:"tge_open"`
	First15mQuoteVolume *float64  `json:"first_15m_quote_volume,omitempty"`
	DayOpenTime         *int64    `json:"day_open_time,omitempty"`
	DayOpen             *float64  `json:"day_open,omitempty"`
	DayHigh             *float64  `json:"day_high,omitempty"`
	DayDeltaRatio       *float64  `json:"day_delta_ratio,omitempty"`
	Note                string    `json:"note,omitempty"`
	Day                 DayStatus `json:"day_status"`
	DayError            string    `json:"day_error,omitempty"`
}

// QuoteVolume is base volume times the candle's reference price. It is
// absent for zero volume or a candle without any non-zero price.
func QuoteVolume(c market.Candle) *float64 {
	if c.Volume == 0 {
		return nil
	}
	price, ok := c.ReferencePrice()
	if !ok {
		return nil
	}
	v := decimal.NewFromFloat(c.Volume).Mul(decimal.NewFromFloat(price)).InexactFloat64()
	return &v
}

// baseStats derives the TGE fields from the first candle of a series.
func baseStats(series market.Series) (Stats, bool) {
	first, ok := series.First()
	if !ok {
		return Stats{}, false
	}
	return Stats{
		TGETime:             first.OpenTime,
		TGEOpen:             first.Open,
		First15mQuoteVolume: QuoteVolume(first),
	}, true
}

// startsAfterExpected reports whether the exchange's first candle is later
// than the expected TGE.
func startsAfterExpected(tgeTime int64, expected *int64) bool {
	return expected != nil && tgeTime > *expected
}

// SelectDayCandle picks the daily candle whose [open, open+span) contains
// tge, else the latest one opening at or before tge, else the first one.
func SelectDayCandle(days []market.Candle, tge, span int64) (market.Candle, bool) {
	if len(days) == 0 {
		return market.Candle{}, false
	}
	for _, d := range days {
		if d.Contains(tge, span) {
			return d, true
		}
	}
	var (
		best  market.Candle
		found bool
	)
	for _, d := range days {
		if d.OpenTime <= tge && (!found || d.OpenTime > best.OpenTime) {
			best, found = d, true
		}
	}
	if found {
		return best, true
	}
	return days[0], true
}

// applyDay fills the day fields. The ratio is day high over the TGE open.
func (s *Stats) applyDay(day market.Candle) {
	openTime := day.OpenTime
	dayOpen := day.Open
	dayHigh := day.High
	s.DayOpenTime = &openTime
	s.DayOpen = &dayOpen
	s.DayHigh = &dayHigh
	s.Day = DayAvailable
	if s.TGEOpen != 0 {
		ratio := decimal.NewFromFloat(dayHigh).Div(decimal.NewFromFloat(s.TGEOpen)).InexactFloat64()
		s.DayDeltaRatio = &ratio
	}
}
