package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"tgescan/internal/analysis/visual"
	"tgescan/internal/logger"
	"tgescan/internal/report"
)

// ExportTargets are output paths; empty entries are skipped.
type ExportTargets struct {
	SeriesCSV  string
	ResultsCSV string
	ChartHTML  string
	ChartPNG   string
	Timeframe  string
}

// Export writes the requested files. The PNG needs a local Chrome; when it
// is missing the PNG is skipped with a warning.
func Export(ctx context.Context, rep Report, t ExportTargets) error {
	if p := strings.TrimSpace(t.SeriesCSV); p != "" {
		if err := report.WriteFile(p, func(w io.Writer) error { return report.WriteSeriesCSV(w, rep.Results) }); err != nil {
			return err
		}
		logger.Infof("series csv written to %s", p)
	}
	if p := strings.TrimSpace(t.ResultsCSV); p != "" {
		if err := report.WriteFile(p, func(w io.Writer) error { return report.WriteResultsCSV(w, rep.Results) }); err != nil {
			return err
		}
		logger.Infof("results csv written to %s", p)
	}
	htmlPath, pngPath := strings.TrimSpace(t.ChartHTML), strings.TrimSpace(t.ChartPNG)
	if htmlPath == "" && pngPath == "" {
		return nil
	}
	panels := Panels(rep, t.Timeframe)
	if len(panels) == 0 {
		logger.Warnf("no series to chart")
		return nil
	}
	title := rep.Coin
	if title == "" {
		title = "TGE scan"
	}
	html, err := visual.RenderHTML(title, panels)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if htmlPath != "" {
		if err := report.WriteFile(htmlPath, func(w io.Writer) error {
			_, err := w.Write(html)
			return err
		}); err != nil {
			return err
		}
		logger.Infof("chart written to %s", htmlPath)
	}
	if pngPath != "" {
		png, err := visual.RenderPNG(ctx, html, len(panels))
		if err != nil {
			logger.Warnf("chart png skipped: %v", err)
			return nil
		}
		if err := report.WriteFile(pngPath, func(w io.Writer) error {
			_, err := w.Write(png)
			return err
		}); err != nil {
			return err
		}
		logger.Infof("chart png written to %s", pngPath)
	}
	return nil
}

// Panels returns one chart panel per successful result with candles.
func Panels(rep Report, timeframe string) []visual.Panel {
	var out []visual.Panel
	for _, r := range rep.Results {
		if !r.OK() || len(r.Series) == 0 {
			continue
		}
		out = append(out, visual.Panel{
			Exchange:  r.ExchangeName,
			Pair:      r.Pair(),
			Timeframe: timeframe,
			Candles:   r.Series,
			Note:      r.Stats.Note,
		})
	}
	return out
}
