package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"tgescan/internal/collector"
	"tgescan/internal/market"
	"tgescan/internal/scan"
)

var seriesHeader = []string{
	"exchange", "pair", "open_time_ms", "open_time", "open", "high", "low", "close",
	"base_volume", "quote_volume", "error",
}

var resultsHeader = []string{
	"exchange", "connector", "pair", "symbol", "spot", "tge_time_ms", "tge_time", "tge_open",
	"first_15m_quote_volume", "day_open", "day_high", "high_open_ratio", "day_status", "note", "error",
}

// WriteSeriesCSV dumps every candle of every exchange's full trading flow.
// Failed exchanges contribute one row carrying the error.
func WriteSeriesCSV(w io.Writer, results []scan.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(seriesHeader); err != nil {
		return err
	}
	for _, r := range results {
		if len(r.Series) == 0 {
			msg := r.Error
			if msg == "" {
				msg = "no candles"
			}
			if err := cw.Write([]string{r.ExchangeName, r.Pair(), "", "", "", "", "", "", "", "", msg}); err != nil {
				return err
			}
			continue
		}
		for _, c := range r.Series {
			if err := cw.Write(seriesRow(r, c)); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func seriesRow(r scan.Result, c market.Candle) []string {
	quote := ""
	if v := collector.QuoteVolume(c); v != nil {
		quote = formatFloat(*v)
	}
	return []string{
		r.ExchangeName,
		r.Pair(),
		strconv.FormatInt(c.OpenTime, 10),
		market.FormatMillis(c.OpenTime),
		formatFloat(c.Open),
		formatFloat(c.High),
		formatFloat(c.Low),
		formatFloat(c.Close),
		formatFloat(c.Volume),
		quote,
		"",
	}
}

// WriteResultsCSV writes one row per exchange result.
func WriteResultsCSV(w io.Writer, results []scan.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultsHeader); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{r.ExchangeName, r.ConnectorID, r.Pair(), r.Symbol, strconv.FormatBool(r.Spot),
			"", "", "", "", "", "", "", "", "", r.Error}
		if s := r.Stats; s != nil {
			row[5] = strconv.FormatInt(s.TGETime, 10)
			row[6] = market.FormatMillis(s.TGETime)
			row[7] = formatFloat(s.TGEOpen)
			row[8] = formatPtr(s.First15mQuoteVolume)
			row[9] = formatPtr(s.DayOpen)
			row[10] = formatPtr(s.DayHigh)
			row[11] = formatPtr(s.DayDeltaRatio)
			row[12] = s.Day.String()
			row[13] = s.Note
			if s.DayError != "" && r.Error == "" {
				row[14] = s.DayError
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile creates path (and its directory) and streams into it.
func WriteFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
