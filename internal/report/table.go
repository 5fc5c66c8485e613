package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"tgescan/internal/market"
	"tgescan/internal/scan"
)

var tableHeader = []string{"EXCHANGE", "TGE DATE", "15m VOL", "DAY1 OPEN", "DAY1 HIGH", "HIGH/OPEN", "NOTE/ERROR"}

// Row renders one result into the table's string columns.
func Row(r scan.Result) []string {
	row := []string{r.ExchangeName, "-", "-", "-", "-", "-", r.Error}
	if r.Stats == nil {
		return row
	}
	s := r.Stats
	row[1] = market.FormatMillis(s.TGETime)
	row[2] = formatOptional(s.First15mQuoteVolume, "%.4f")
	row[3] = formatOptional(s.DayOpen, "%.6f")
	row[4] = formatOptional(s.DayHigh, "%.6f")
	row[5] = formatOptional(s.DayDeltaRatio, "%.2fx")
	note := s.Note
	if s.DayError != "" {
		note = strings.TrimSpace(note + " day candle: " + s.DayError)
	}
	row[6] = note
	return row
}

func formatOptional(v *float64, format string) string {
	if v == nil || *v == 0 {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

// WriteTable prints the header block, anchor lines, the per-exchange table
// and the totals.
func WriteTable(w io.Writer, results []scan.Result, expectedTGE *int64) error {
	sum := Summarize(results)
	var sb strings.Builder
	sb.WriteString("=======================\n")
	sb.WriteString("   PRICE ACTION / TGE\n")
	sb.WriteString("=======================\n\n")
	if expectedTGE != nil {
		sb.WriteString(fmt.Sprintf("Expected TGE (CoinGecko estimate): %s\n", market.FormatMillis(*expectedTGE)))
	}
	if sum.Earliest != nil {
		sb.WriteString(fmt.Sprintf("Earliest listing: %s\n", sum.Earliest))
		sb.WriteString(fmt.Sprintf("Anchor (first CEX): %s\n", sum.Anchor))
	} else {
		sb.WriteString("No CEX listings found.\n")
	}
	sb.WriteString("\n")
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(tableHeader, "\t"))
	for _, r := range results {
		fmt.Fprintln(tw, strings.Join(Row(r), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nTOTALS:\nTOTAL_CEX : %.4f\nTOTAL     : %.4f\n", sum.TotalQuoteVol, sum.TotalQuoteVol)
	return err
}
