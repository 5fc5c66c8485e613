// Package collector discovers the earliest candle an exchange serves for a
// market, walks the full history forward from it and derives TGE statistics.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tgescan/internal/gateway/exchange"
	"tgescan/internal/logger"
	"tgescan/internal/market"
	"tgescan/internal/resolver"
)

// ErrEmptyHistory means not a single page of candles came back.
var ErrEmptyHistory = errors.New("no candle history")

const (
	defaultTimeframe    = "15m"
	defaultLimit        = 500
	defaultDayTimeframe = "1d"
	defaultDayLimit     = 4
	defaultDayLookback  = 48 * time.Hour
)

type Config struct {
	Timeframe    string
	Limit        int
	DayTimeframe string
	DayLimit     int
	DayLookback  time.Duration
	Now          func() time.Time
}

func (c Config) withDefaults() Config {
	out := c
	if out.Timeframe == "" {
		out.Timeframe = defaultTimeframe
	}
	if out.Limit <= 0 {
		out.Limit = defaultLimit
	}
	if out.DayTimeframe == "" {
		out.DayTimeframe = defaultDayTimeframe
	}
	if out.DayLimit <= 0 {
		out.DayLimit = defaultDayLimit
	}
	if out.DayLookback <= 0 {
		out.DayLookback = defaultDayLookback
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	return out
}

type Collector struct {
	cfg Config
}

func New(cfg Config) *Collector {
	return &Collector{cfg: cfg.withDefaults()}
}

// Outcome is the collector's product for one exchange.
type Outcome struct {
	Series market.Series
	Stats  Stats
}

// pager issues sequential page requests for one resolved market.
type pager struct {
	res    resolver.Resolution
	tf     string
	tfMs   int64
	limit  int
	logTag string
}

func (c *Collector) newPager(res resolver.Resolution, tf string) (pager, error) {
	tfMs, err := res.TimeframeMillis(tf)
	if err != nil {
		return pager{}, err
	}
	if tfMs <= 0 {
		return pager{}, fmt.Errorf("invalid timeframe %q", tf)
	}
	limit := c.cfg.Limit
	if res.PageLimit > 0 && limit > res.PageLimit {
		limit = res.PageLimit
	}
	return pager{
		res:    res,
		tf:     tf,
		tfMs:   tfMs,
		limit:  limit,
		logTag: res.Market.Exchange + " " + res.Market.Symbol,
	}, nil
}

func (p pager) fetch(ctx context.Context, since int64, limit int) ([]market.Candle, error) {
	page, err := p.res.Connector.FetchOHLCV(ctx, exchange.FetchRequest{
		Symbol:    p.res.Market.Symbol,
		Spot:      p.res.Market.Spot,
		Timeframe: p.tf,
		Since:     since,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%s fetch %s since %s: %w", p.res.Market.Exchange, p.tf, market.FormatMillis(since), err)
	}
	return page, nil
}

// FindEarliestPage steps backward one page span at a time until the
// exchange returns nothing or repeats the previous page's first candle.
func (c *Collector) FindEarliestPage(ctx context.Context, res resolver.Resolution) ([]market.Candle, error) {
	p, err := c.newPager(res, c.cfg.Timeframe)
	if err != nil {
		return nil, err
	}
	return p.findEarliest(ctx, c.cfg.Now().UnixMilli())
}

func (p pager) findEarliest(ctx context.Context, now int64) ([]market.Candle, error) {
	span := p.tfMs * int64(p.limit)
	cursor := now - span
	var (
		earliest  []market.Candle
		prevFirst int64
		pages     int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := p.fetch(ctx, cursor, p.limit)
		if err != nil {
			return nil, err
		}
		pages++
		if len(page) == 0 {
			break
		}
		first := page[0].OpenTime
		if earliest != nil && first == prevFirst {
			break
		}
		earliest = page
		prevFirst = first
		cursor -= span
	}
	if earliest == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrEmptyHistory, p.res.Market.Exchange, p.res.Market.Pair())
	}
	logger.Debugf("[%s] earliest page at %s after %d requests", p.logTag, market.FormatMillis(earliest[0].OpenTime), pages)
	return earliest, nil
}

// walkForward pages from start until an empty page, a page that repeats the
// previous first candle, or a short page.
func (p pager) walkForward(ctx context.Context, start int64) ([][]market.Candle, error) {
	var (
		pages     [][]market.Candle
		prevFirst int64
	)
	cursor := start
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := p.fetch(ctx, cursor, p.limit)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		first := page[0].OpenTime
		if len(pages) > 0 && first == prevFirst {
			break
		}
		pages = append(pages, page)
		prevFirst = first
		if len(page) < p.limit {
			break
		}
		cursor = page[len(page)-1].OpenTime + p.tfMs
	}
	return pages, nil
}

// FullSeries returns the deduplicated, ascending history from the earliest
// candle the exchange serves.
func (c *Collector) FullSeries(ctx context.Context, res resolver.Resolution) (market.Series, error) {
	p, err := c.newPager(res, c.cfg.Timeframe)
	if err != nil {
		return nil, err
	}
	earliest, err := p.findEarliest(ctx, c.cfg.Now().UnixMilli())
	if err != nil {
		return nil, err
	}
	forward, err := p.walkForward(ctx, earliest[0].OpenTime)
	if err != nil {
		return nil, err
	}
	pages := make([][]market.Candle, 0, len(forward)+1)
	pages = append(pages, earliest)
	pages = append(pages, forward...)
	series := market.MergePages(pages...)
	logger.Debugf("[%s] full series %d candles over %d forward pages", p.logTag, len(series), len(forward))
	return series, nil
}

// FetchDayCandle requests daily candles around tge and selects the one
// aligned to it.
func (c *Collector) FetchDayCandle(ctx context.Context, res resolver.Resolution, tge int64) (market.Candle, error) {
	p, err := c.newPager(res, c.cfg.DayTimeframe)
	if err != nil {
		return market.Candle{}, err
	}
	since := tge - c.cfg.DayLookback.Milliseconds()
	days, err := p.fetch(ctx, since, c.cfg.DayLimit)
	if err != nil {
		return market.Candle{}, err
	}
	day, ok := SelectDayCandle(days, tge, p.tfMs)
	if !ok {
		return market.Candle{}, fmt.Errorf("no %s candle around %s", c.cfg.DayTimeframe, market.FormatMillis(tge))
	}
	return day, nil
}

// Collect runs discovery, the forward walk and the statistics for one
// resolved market. Failures in the day stage only degrade the result.
func (c *Collector) Collect(ctx context.Context, res resolver.Resolution, expectedTGE *int64) (Outcome, error) {
	series, err := c.FullSeries(ctx, res)
	if err != nil {
		return Outcome{}, err
	}
	stats, ok := baseStats(series)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s %s", ErrEmptyHistory, res.Market.Exchange, res.Market.Pair())
	}
	if startsAfterExpected(stats.TGETime, expectedTGE) {
		stats.Note = NoteAfterTGE
		stats.Day = DaySkippedAfterTGE
		return Outcome{Series: series, Stats: stats}, nil
	}
	day, err := c.FetchDayCandle(ctx, res, stats.TGETime)
	if err != nil {
		logger.Warnf("[%s %s] day candle unavailable: %v", res.Market.Exchange, res.Market.Symbol, err)
		stats.Day = DayUnavailable
		stats.DayError = err.Error()
		return Outcome{Series: series, Stats: stats}, nil
	}
	stats.applyDay(day)
	return Outcome{Series: series, Stats: stats}, nil
}
