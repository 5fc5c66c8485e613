package app

import (
	"path/filepath"
	"testing"

	"tgescan/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWiresRunLog(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "runs.db")
	cfg.Export.ChartHTML = "chart.html"

	a, err := New(cfg, "")
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Service())
	assert.NotNil(t, a.runs)
	assert.Equal(t, "chart.html", a.ExportTargets().ChartHTML)
	assert.Equal(t, "15m", a.ExportTargets().Timeframe)
	assert.Contains(t, a.Summary.Connectors, "binance")
	assert.Equal(t, cfg.Store.Path, a.Summary.RunLog)
}

func TestNewWithoutRunLog(t *testing.T) {
	a, err := New(config.Default(), "")
	require.NoError(t, err)
	assert.Nil(t, a.runs)
	a.Close()
}
