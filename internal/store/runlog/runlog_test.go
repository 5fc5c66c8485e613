package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tgescan/internal/collector"
	"tgescan/internal/market"
	"tgescan/internal/scan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndGet(t *testing.T) {
	s := openTemp(t)
	vol := 1234.5
	results := []scan.Result{
		{
			ExchangeName: "Binance", ConnectorID: "binance", Base: "ABC", Quote: "USDT", Symbol: "ABCUSDT", Spot: true,
			Stats:  &collector.Stats{TGETime: 1_700_000_000_000, TGEOpen: 0.5, First15mQuoteVolume: &vol, Day: collector.DayAvailable},
			Series: market.Series{{OpenTime: 1_700_000_000_000}, {OpenTime: 1_700_000_900_000}},
		},
		{ExchangeName: "Kraken", Base: "ABC", Quote: "USD", Error: "connector unsupported"},
	}
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	id, err := s.Save(context.Background(), Entry{
		Coin: "abc-token", Source: "coingecko", StartedAt: start, FinishedAt: start.Add(time.Minute),
		Results: results, TotalQuoteVol: vol, AnchorName: "Binance", AnchorTime: 1_700_000_000_000,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	run, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "abc-token", run.Coin)
	assert.Equal(t, 1, run.Succeeded)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, start, run.StartedAt)
	require.Len(t, run.Results, 2)
	assert.Equal(t, "Binance", run.Results[0].ExchangeName)
	assert.Equal(t, 2, run.Results[0].Candles)
	require.NotNil(t, run.Results[0].Stats)
	assert.Equal(t, collector.DayAvailable, run.Results[0].Stats.Day)
	assert.InDelta(t, vol, *run.Results[0].Stats.First15mQuoteVolume, 1e-9)
	assert.Nil(t, run.Results[1].Stats)
	assert.Equal(t, "connector unsupported", run.Results[1].Error)
}

func TestListNewestFirst(t *testing.T) {
	s := openTemp(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := s.Save(context.Background(), Entry{Coin: "c", Source: "file", StartedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}
	runs, err := s.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
	assert.Empty(t, runs[0].Results)
}

func TestGetUnknown(t *testing.T) {
	s := openTemp(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(" ")
	assert.Error(t, err)
}
