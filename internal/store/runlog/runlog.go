// Package runlog archives scan summaries in SQLite. Candle series are never
// stored; a run keeps one row per exchange result.
package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tgescan/internal/collector"
	"tgescan/internal/scan"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned by Get for unknown run ids.
var ErrRunNotFound = errors.New("scan run not found")

type runModel struct {
	ID            string  `gorm:"column:id;primaryKey"`
	Coin          string  `gorm:"column:coin;index"`
	Source        string  `gorm:"column:source"`
	ExpectedTGE   *int64  `gorm:"column:expected_tge"`
	Succeeded     int     `gorm:"column:succeeded"`
	Failed        int     `gorm:"column:failed"`
	TotalQuoteVol float64 `gorm:"column:total_quote_volume"`
	AnchorName    string  `gorm:"column:anchor_exchange"`
	AnchorTime    int64   `gorm:"column:anchor_time"`
	StartedAtUnix int64   `gorm:"column:started_at;index"`
	FinishedUnix  int64   `gorm:"column:finished_at"`
}

func (runModel) TableName() string { return "scan_runs" }

type resultModel struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement"`
	RunID        string         `gorm:"column:run_id;index"`
	Position     int            `gorm:"column:position"`
	ExchangeName string         `gorm:"column:exchange_name"`
	ConnectorID  string         `gorm:"column:connector_id"`
	Symbol       string         `gorm:"column:symbol"`
	Pair         string         `gorm:"column:pair"`
	Spot         bool           `gorm:"column:spot"`
	TGETime      int64          `gorm:"column:tge_time"`
	Candles      int            `gorm:"column:candles"`
	Stats        datatypes.JSON `gorm:"column:stats"`
	Error        string         `gorm:"column:error"`
}

func (resultModel) TableName() string { return "scan_results" }

// Run is one archived scan.
type Run struct {
	ID            string         `json:"id"`
	Coin          string         `json:"coin,omitempty"`
	Source        string         `json:"source"`
	ExpectedTGE   *int64         `json:"expected_tge,omitempty"`
	Succeeded     int            `json:"succeeded"`
	Failed        int            `json:"failed"`
	TotalQuoteVol float64        `json:"total_quote_volume"`
	AnchorName    string         `json:"anchor_exchange,omitempty"`
	AnchorTime    int64          `json:"anchor_time,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	Results       []StoredResult `json:"results,omitempty"`
}

// StoredResult mirrors scan.Result without the series.
type StoredResult struct {
	ExchangeName string           `json:"exchange_name"`
	ConnectorID  string           `json:"connector_id,omitempty"`
	Symbol       string           `json:"symbol,omitempty"`
	Pair         string           `json:"pair"`
	Spot         bool             `json:"spot"`
	Candles      int              `json:"candles"`
	Stats        *collector.Stats `json:"stats,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// Entry is what the caller hands over after a scan.
type Entry struct {
	Coin          string
	Source        string
	ExpectedTGE   *int64
	StartedAt     time.Time
	FinishedAt    time.Time
	Results       []scan.Result
	TotalQuoteVol float64
	AnchorName    string
	AnchorTime    int64
}

type Store struct {
	db *gorm.DB
}

// Open 打开（或创建）运行日志数据库。
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("runlog: path is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&runModel{}, &resultModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save writes a run and its results in one transaction and returns the run id.
func (s *Store) Save(ctx context.Context, e Entry) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("runlog 未初始化")
	}
	run := runModel{
		ID:            uuid.NewString(),
		Coin:          e.Coin,
		Source:        e.Source,
		ExpectedTGE:   e.ExpectedTGE,
		TotalQuoteVol: e.TotalQuoteVol,
		AnchorName:    e.AnchorName,
		AnchorTime:    e.AnchorTime,
		StartedAtUnix: e.StartedAt.UnixMilli(),
		FinishedUnix:  e.FinishedAt.UnixMilli(),
	}
	rows := make([]resultModel, 0, len(e.Results))
	for i, r := range e.Results {
		if r.OK() {
			run.Succeeded++
		} else {
			run.Failed++
		}
		row := resultModel{
			RunID:        run.ID,
			Position:     i,
			ExchangeName: r.ExchangeName,
			ConnectorID:  r.ConnectorID,
			Symbol:       r.Symbol,
			Pair:         r.Pair(),
			Spot:         r.Spot,
			Candles:      len(r.Series),
			Error:        r.Error,
		}
		if r.Stats != nil {
			raw, err := json.Marshal(r.Stats)
			if err != nil {
				return "", fmt.Errorf("encode stats for %s: %w", r.ExchangeName, err)
			}
			row.Stats = datatypes.JSON(raw)
			row.TGETime = r.Stats.TGETime
		}
		rows = append(rows, row)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return "", fmt.Errorf("save scan run: %w", err)
	}
	return run.ID, nil
}

// List returns the most recent runs without their results.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var models []runModel
	if err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Run, 0, len(models))
	for _, m := range models {
		out = append(out, toRun(m))
	}
	return out, nil
}

// Get loads one run with its results in scan order.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	var m runModel
	err := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, err
	}
	var rows []resultModel
	if err := s.db.WithContext(ctx).Where("run_id = ?", m.ID).Order("position ASC").Find(&rows).Error; err != nil {
		return Run{}, err
	}
	run := toRun(m)
	run.Results = make([]StoredResult, 0, len(rows))
	for _, row := range rows {
		sr := StoredResult{
			ExchangeName: row.ExchangeName,
			ConnectorID:  row.ConnectorID,
			Symbol:       row.Symbol,
			Pair:         row.Pair,
			Spot:         row.Spot,
			Candles:      row.Candles,
			Error:        row.Error,
		}
		if len(row.Stats) > 0 {
			var st collector.Stats
			if err := json.Unmarshal(row.Stats, &st); err != nil {
				return Run{}, fmt.Errorf("decode stats for %s: %w", row.ExchangeName, err)
			}
			sr.Stats = &st
		}
		run.Results = append(run.Results, sr)
	}
	return run, nil
}

func toRun(m runModel) Run {
	return Run{
		ID:            m.ID,
		Coin:          m.Coin,
		Source:        m.Source,
		ExpectedTGE:   m.ExpectedTGE,
		Succeeded:     m.Succeeded,
		Failed:        m.Failed,
		TotalQuoteVol: m.TotalQuoteVol,
		AnchorName:    m.AnchorName,
		AnchorTime:    m.AnchorTime,
		StartedAt:     time.UnixMilli(m.StartedAtUnix).UTC(),
		FinishedAt:    time.UnixMilli(m.FinishedUnix).UTC(),
	}
}
