package market

import "sort"

// Series is an ascending, open-time-unique run of candles for one
// (market, timeframe) pair. Gaps are allowed.
type Series []Candle

// MergePages folds pages into one series. A later page wins when two pages
// carry the same open time.
func MergePages(pages ...[]Candle) Series {
	total := 0
	for _, p := range pages {
		total += len(p)
	}
	if total == 0 {
		return nil
	}
	byTime := make(map[int64]Candle, total)
	for _, page := range pages {
		for _, c := range page {
			byTime[c.OpenTime] = c
		}
	}
	out := make(Series, 0, len(byTime))
	for _, c := range byTime {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenTime < out[j].OpenTime })
	return out
}

// Normalize sorts a single page and drops repeated open times, keeping the
// last occurrence. Exchanges that answer newest-first go through here.
func Normalize(page []Candle) []Candle {
	return MergePages(page)
}

func (s Series) First() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[0], true
}

// Valid reports whether open times are strictly increasing.
func (s Series) Valid() bool {
	for i := 1; i < len(s); i++ {
		if s[i].OpenTime <= s[i-1].OpenTime {
			return false
		}
	}
	return true
}
