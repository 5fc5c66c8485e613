package market

import "time"

// Candle is one OHLCV bucket. OpenTime is the inclusive, left-aligned bucket
// start in epoch milliseconds; Volume is denominated in the base asset.
type Candle struct {
	OpenTime int64   `json:"open_time"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

const timeLayout = "2006-01-02 15:04:05 UTC"

// FormatMillis renders an epoch-millisecond timestamp in UTC, "-" for zero.
func FormatMillis(ts int64) string {
	if ts <= 0 {
		return "-"
	}
	return time.UnixMilli(ts).UTC().Format(timeLayout)
}

// ReferencePrice returns the first non-zero of close, open, high, low. Some
// exchanges publish a zero close on the very first candle of a listing.
func (c Candle) ReferencePrice() (float64, bool) {
	for _, p := range []float64{c.Close, c.Open, c.High, c.Low} {
		if p != 0 {
			return p, true
		}
	}
	return 0, false
}

// Contains reports whether ts falls inside [OpenTime, OpenTime+spanMillis).
func (c Candle) Contains(ts, spanMillis int64) bool {
	return ts >= c.OpenTime && ts < c.OpenTime+spanMillis
}
