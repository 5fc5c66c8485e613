package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayMillis is the span of a "1d" candle.
const DayMillis = int64(24 * time.Hour / time.Millisecond)

// ParseTimeframe 将 "15m"、"1h"、"1d"、"1w" 之类的周期解析为毫秒。
func ParseTimeframe(tf string) (int64, error) {
	d, ok := parseInterval(tf)
	if !ok {
		return 0, fmt.Errorf("unsupported timeframe: %q", tf)
	}
	return d.Milliseconds(), nil
}

func parseInterval(interval string) (time.Duration, bool) {
	interval = strings.TrimSpace(interval)
	if len(interval) < 2 {
		return 0, false
	}
	unit := interval[len(interval)-1]
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return 0, false
	}
	switch unit {
	case 's':
		return time.Duration(n) * time.Second, true
	case 'm':
		return time.Duration(n) * time.Minute, true
	case 'h', 'H':
		return time.Duration(n) * time.Hour, true
	case 'd', 'D':
		return time.Duration(n) * 24 * time.Hour, true
	case 'w', 'W':
		return time.Duration(n) * 7 * 24 * time.Hour, true
	case 'M':
		return time.Duration(n) * 30 * 24 * time.Hour, true
	default:
		return 0, false
	}
}
