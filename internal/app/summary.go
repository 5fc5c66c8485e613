package app

import (
	"fmt"
	"sort"
	"strings"

	"tgescan/internal/config"
)

// StartupSummary 是服务启动时打印的配置摘要。
type StartupSummary struct {
	HTTPAddr   string
	Timeframe  string
	PageLimit  int
	DayWindow  int
	Connectors []string
	Overrides  []string
	Disabled   []string
	RunLog     string
}

func buildSummary(cfg *config.Config, connectors []string) *StartupSummary {
	s := &StartupSummary{
		HTTPAddr:   cfg.App.HTTPAddr,
		Timeframe:  cfg.Scan.Timeframe,
		PageLimit:  cfg.Scan.PageLimit,
		DayWindow:  cfg.Scan.DayWindowDays,
		Connectors: connectors,
		RunLog:     cfg.Store.Path,
	}
	for id := range cfg.Exchanges {
		s.Overrides = append(s.Overrides, id)
	}
	sort.Strings(s.Overrides)
	for name, reason := range cfg.DisabledExchanges() {
		s.Disabled = append(s.Disabled, fmt.Sprintf("%s (%s)", name, reason))
	}
	sort.Strings(s.Disabled)
	return s
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("STARTUP SUMMARY")/2, "STARTUP SUMMARY")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("  监听地址: %s\n", s.HTTPAddr)
	fmt.Printf("  K线周期: %s (page %d, day window %dd)\n", s.Timeframe, s.PageLimit, s.DayWindow)
	fmt.Printf("  连接器: %s\n", formatList(s.Connectors))
	fmt.Printf("  覆盖配置: %s\n", formatList(s.Overrides))
	fmt.Printf("  已禁用: %s\n", formatList(s.Disabled))
	runlog := s.RunLog
	if runlog == "" {
		runlog = "(disabled)"
	}
	fmt.Printf("  运行日志: %s\n", runlog)
	fmt.Println(strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
