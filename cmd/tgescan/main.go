package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"tgescan/internal/app"
	"tgescan/internal/config"
	"tgescan/internal/listing"
	"tgescan/internal/logger"
	"tgescan/internal/report"
	"tgescan/internal/service"
)

func main() {
	var (
		cfgFlag     = flag.String("config", "", "config file (default $TGESCAN_CONFIG or configs/config.yaml)")
		coinID      = flag.String("coin", "", "CoinGecko coin id to scan")
		symbol      = flag.String("symbol", "", "token ticker; must match exactly one CoinGecko project")
		marketsPath = flag.String("markets", "", "YAML markets file used instead of CoinGecko")
		expected    = flag.String("expected-tge", "", "expected TGE: epoch ms, YYYY-MM-DD or RFC 3339")
		serve       = flag.Bool("serve", false, "run the HTTP API instead of a one-off scan")
		asJSON      = flag.Bool("json", false, "print the report as JSON instead of a table")
		seriesCSV   = flag.String("series-csv", "", "write every candle to this CSV")
		resultsCSV  = flag.String("results-csv", "", "write per-exchange results to this CSV")
		chartHTML   = flag.String("chart", "", "write an HTML candle chart")
		chartPNG    = flag.String("chart-png", "", "write a PNG candle chart (needs Chrome)")
	)
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("读取 .env 失败: %v", err)
	}
	cfgPath := config.ResolvePath(*cfgFlag)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	overrideString(&cfg.Export.SeriesCSV, *seriesCSV)
	overrideString(&cfg.Export.ResultsCSV, *resultsCSV)
	overrideString(&cfg.Export.ChartHTML, *chartHTML)
	overrideString(&cfg.Export.ChartPNG, *chartPNG)

	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("初始化日志文件失败: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	a, err := app.New(cfg, cfgPath)
	if err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serve {
		if err := a.Serve(ctx); err != nil {
			log.Fatalf("运行失败: %v", err)
		}
		return
	}

	in, err := buildInput(*coinID, *symbol, *marketsPath, *expected)
	if err != nil {
		log.Fatalf("%v", err)
	}
	rep, err := a.Service().Scan(ctx, in)
	if err != nil {
		log.Fatalf("扫描失败: %v", err)
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(rep)
	} else {
		err = report.WriteTable(os.Stdout, rep.Results, rep.ExpectedTGE)
	}
	if err != nil {
		log.Fatalf("输出失败: %v", err)
	}
	if err := service.Export(ctx, rep, a.ExportTargets()); err != nil {
		log.Fatalf("导出失败: %v", err)
	}
	if rep.RunID != "" {
		logger.Infof("run saved as %s", rep.RunID)
	}
}

func buildInput(coinID, symbol, marketsPath, expected string) (service.Input, error) {
	var in service.Input
	if p := strings.TrimSpace(marketsPath); p != "" {
		f, err := listing.LoadFile(p)
		if err != nil {
			return in, err
		}
		in.CoinID = f.Coin
		in.Markets = f.Markets
		if in.ExpectedTGE, err = f.ExpectedTGEMillis(); err != nil {
			return in, fmt.Errorf("expected_tge in %s: %w", p, err)
		}
	} else {
		in.CoinID = strings.TrimSpace(coinID)
		in.Symbol = strings.TrimSpace(symbol)
		if in.CoinID == "" && in.Symbol == "" {
			return in, fmt.Errorf("one of -coin, -symbol or -markets is required")
		}
	}
	if strings.TrimSpace(expected) != "" {
		ms, err := listing.ParseTime(expected)
		if err != nil {
			return in, fmt.Errorf("-expected-tge: %w", err)
		}
		in.ExpectedTGE = ms
	}
	return in, nil
}

func overrideString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// setupLogOutput tees logs into path. Stdout carries the report, so the
// console side of the tee is stderr.
func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stderr, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
