package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tgescan/internal/collector"
	"tgescan/internal/listing"
	"tgescan/internal/market"
	"tgescan/internal/scan"
	"tgescan/internal/store/runlog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCoins struct{ mock.Mock }

func (m *mockCoins) Coin(ctx context.Context, id string) (listing.Coin, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(listing.Coin), args.Error(1)
}

func (m *mockCoins) Search(ctx context.Context, symbol string) ([]listing.Match, error) {
	args := m.Called(ctx, symbol)
	hits, _ := args.Get(0).([]listing.Match)
	return hits, args.Error(1)
}

type mockRuns struct{ mock.Mock }

func (m *mockRuns) Save(ctx context.Context, e runlog.Entry) (string, error) {
	args := m.Called(ctx, e)
	return args.String(0), args.Error(1)
}

// echoRunner succeeds for binance listings and fails everything else.
type echoRunner struct {
	got scan.Request
}

func (r *echoRunner) Run(_ context.Context, req scan.Request) []scan.Result {
	r.got = req
	out := make([]scan.Result, 0, len(req.Listings))
	for _, l := range req.Listings {
		res := scan.Result{ExchangeName: l.ExchangeName, ConnectorID: l.ConnectorID, Base: l.Base, Quote: l.Quote}
		if l.ConnectorID == "binance" {
			vol := 100.0
			res.Stats = &collector.Stats{TGETime: 1_700_000_000_000, TGEOpen: 1, First15mQuoteVolume: &vol}
			res.Series = market.Series{{OpenTime: 1_700_000_000_000, Open: 1, High: 2, Low: 1, Close: 1.5, Volume: 10}}
		} else {
			res.Error = "connector unsupported"
		}
		out = append(out, res)
	}
	return out
}

func TestScanFromCoinGecko(t *testing.T) {
	coins := new(mockCoins)
	coins.On("Coin", mock.Anything, "abc").Return(listing.Coin{
		ID:          "abc",
		GenesisDate: "2023-11-14",
		Tickers: []listing.Ticker{
			{MarketName: "Binance", Base: "ABC", Target: "USDT", Volume: 10},
			{MarketName: "Uniswap V3", Base: "ABC", Target: "WETH", Volume: 99},
			{MarketName: "Kraken", Base: "ABC", Target: "USD", Volume: 5},
		},
	}, nil)
	runs := new(mockRuns)
	runs.On("Save", mock.Anything, mock.MatchedBy(func(e runlog.Entry) bool {
		return e.Coin == "abc" && e.AnchorName == "Binance" && len(e.Results) == 2
	})).Return("run-1", nil)

	runner := &echoRunner{}
	svc, err := New(Options{Coins: coins, Runner: runner, Runs: runs})
	require.NoError(t, err)

	rep, err := svc.Scan(context.Background(), Input{CoinID: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "run-1", rep.RunID)
	assert.Equal(t, "coingecko", rep.Source)
	assert.Equal(t, 2, rep.Listings)
	require.NotNil(t, rep.ExpectedTGE)
	assert.Equal(t, int64(1_699_920_000_000), *rep.ExpectedTGE)
	assert.Equal(t, 1, rep.Summary.Succeeded)
	assert.Equal(t, 1, rep.Summary.Failed)
	assert.InDelta(t, 100.0, rep.Summary.TotalQuoteVol, 1e-9)
	coins.AssertExpectations(t)
	runs.AssertExpectations(t)
}

func TestScanMarketsOverrideExpectedTGE(t *testing.T) {
	runner := &echoRunner{}
	svc, err := New(Options{Runner: runner, Disabled: map[string]string{"Bitget": "geo"}})
	require.NoError(t, err)
	expected := int64(42)
	rep, err := svc.Scan(context.Background(), Input{
		ExpectedTGE: &expected,
		Markets: []listing.Listing{
			{ExchangeName: "Binance", Base: "ABC", Quote: "USDT"},
			{ExchangeName: "Bitget", Base: "ABC", Quote: "USDT"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "markets", rep.Source)
	assert.Empty(t, rep.RunID)
	assert.Equal(t, &expected, runner.got.ExpectedTGE)
	require.Len(t, runner.got.Listings, 2)
	assert.Equal(t, "binance", runner.got.Listings[0].ConnectorID)
	assert.Equal(t, "geo", runner.got.Listings[1].DisabledReason)
}

func TestScanRunLogFailureKeepsReport(t *testing.T) {
	runs := new(mockRuns)
	runs.On("Save", mock.Anything, mock.Anything).Return("", errors.New("disk full"))
	svc, err := New(Options{Runner: &echoRunner{}, Runs: runs})
	require.NoError(t, err)
	rep, err := svc.Scan(context.Background(), Input{Markets: []listing.Listing{{ExchangeName: "Binance", Base: "ABC", Quote: "USDT"}}})
	require.NoError(t, err)
	assert.Empty(t, rep.RunID)
	assert.Len(t, rep.Results, 1)
}

func TestScanBySymbol(t *testing.T) {
	coins := new(mockCoins)
	coins.On("Search", mock.Anything, "abc").Return([]listing.Match{{ID: "abc-token", Symbol: "abc", Name: "ABC"}}, nil)
	coins.On("Search", mock.Anything, "dup").Return([]listing.Match{{ID: "d1", Name: "One"}, {ID: "d2", Name: "Two"}}, nil)
	coins.On("Search", mock.Anything, "none").Return(nil, nil)
	coins.On("Coin", mock.Anything, "abc-token").Return(listing.Coin{ID: "abc-token", Tickers: []listing.Ticker{
		{MarketName: "Binance", Base: "ABC", Target: "USDT", Volume: 1},
	}}, nil)
	svc, err := New(Options{Coins: coins, Runner: &echoRunner{}})
	require.NoError(t, err)

	rep, err := svc.Scan(context.Background(), Input{Symbol: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "ABC", rep.Coin)
	assert.Equal(t, 1, rep.Summary.Succeeded)

	_, err = svc.Scan(context.Background(), Input{Symbol: "dup"})
	assert.ErrorIs(t, err, ErrAmbiguousSymbol)
	assert.ErrorContains(t, err, "d2 (Two)")

	_, err = svc.Scan(context.Background(), Input{Symbol: "none"})
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestScanRequiresInput(t *testing.T) {
	svc, err := New(Options{Coins: new(mockCoins), Runner: &echoRunner{}})
	require.NoError(t, err)
	_, err = svc.Scan(context.Background(), Input{})
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestExportWritesFiles(t *testing.T) {
	svc, err := New(Options{Runner: &echoRunner{}})
	require.NoError(t, err)
	rep, err := svc.Scan(context.Background(), Input{Markets: []listing.Listing{
		{ExchangeName: "Binance", Base: "ABC", Quote: "USDT"},
		{ExchangeName: "Kraken", Base: "ABC", Quote: "USD"},
	}})
	require.NoError(t, err)

	dir := t.TempDir()
	targets := ExportTargets{
		SeriesCSV:  filepath.Join(dir, "out", "series.csv"),
		ResultsCSV: filepath.Join(dir, "results.csv"),
		ChartHTML:  filepath.Join(dir, "chart.html"),
		Timeframe:  "15m",
	}
	require.NoError(t, Export(context.Background(), rep, targets))
	for _, p := range []string{targets.SeriesCSV, targets.ResultsCSV, targets.ChartHTML} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.NotZero(t, info.Size(), p)
	}
	assert.Len(t, Panels(rep, "15m"), 1)
}
