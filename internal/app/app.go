package app

import (
	"context"
	"fmt"

	"tgescan/internal/collector"
	"tgescan/internal/config"
	"tgescan/internal/gateway"
	"tgescan/internal/listing"
	"tgescan/internal/logger"
	"tgescan/internal/scan"
	"tgescan/internal/service"
	"tgescan/internal/store/runlog"
	apihttp "tgescan/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→执行扫描或启动 HTTP 服务。
type App struct {
	cfg     *config.Config
	cfgPath string
	svc     *service.Service
	runs    *runlog.Store
	Summary *StartupSummary
}

// New 根据配置构建应用对象（不启动）。
func New(cfg *config.Config, cfgPath string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.SetFormat(cfg.App.LogFormat)

	registry := gateway.NewRegistry()
	coll := collector.New(cfg.CollectorConfig())
	scanner := scan.NewScanner(registry, cfg.ExchangeSettings(), coll)

	coins, err := listing.NewCoinGecko(cfg.CoinGeckoClientConfig())
	if err != nil {
		return nil, fmt.Errorf("coingecko client: %w", err)
	}
	a := &App{cfg: cfg, cfgPath: cfgPath}
	opts := service.Options{
		Coins:    coins,
		Runner:   scanner,
		Aliases:  cfg.Aliases(),
		Disabled: cfg.DisabledExchanges(),
	}
	if cfg.Store.Path != "" {
		runs, err := runlog.Open(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open run log: %w", err)
		}
		a.runs = runs
		opts.Runs = runs
	}
	svc, err := service.New(opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.svc = svc
	a.Summary = buildSummary(cfg, registry.IDs())
	return a, nil
}

func (a *App) Service() *service.Service {
	if a == nil {
		return nil
	}
	return a.svc
}

// ExportTargets maps the export section onto service targets.
func (a *App) ExportTargets() service.ExportTargets {
	return service.ExportTargets{
		SeriesCSV:  a.cfg.Export.SeriesCSV,
		ResultsCSV: a.cfg.Export.ResultsCSV,
		ChartHTML:  a.cfg.Export.ChartHTML,
		ChartPNG:   a.cfg.Export.ChartPNG,
		Timeframe:  a.cfg.Scan.Timeframe,
	}
}

// Serve 启动 HTTP 服务与配置监听，直到 ctx 取消。
func (a *App) Serve(ctx context.Context) error {
	if a == nil || a.svc == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	srvCfg := apihttp.ServerConfig{Addr: a.cfg.App.HTTPAddr, Scans: a.svc}
	if a.runs != nil {
		srvCfg.Runs = a.runs
	}
	server, err := apihttp.NewServer(srvCfg)
	if err != nil {
		return err
	}
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("api http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return config.Watch(ctx, a.cfgPath, func(next *config.Config) {
			logger.SetLevel(next.App.LogLevel)
			logger.Infof("log level now %s", next.App.LogLevel)
		})
	})
	return group.Wait()
}

func (a *App) Close() {
	if a == nil || a.runs == nil {
		return
	}
	if err := a.runs.Close(); err != nil {
		logger.Warnf("close run log: %v", err)
	}
}
