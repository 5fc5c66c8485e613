package resolver

import (
	"context"
	"errors"
	"testing"

	"tgescan/internal/gateway/exchange"
	"tgescan/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockConnector struct {
	mock.Mock
}

func (m *mockConnector) ID() string { return "mockex" }

func (m *mockConnector) LoadMarkets(ctx context.Context) ([]market.Instrument, error) {
	args := m.Called(ctx)
	insts, _ := args.Get(0).([]market.Instrument)
	return insts, args.Error(1)
}

func (m *mockConnector) FetchOHLCV(ctx context.Context, req exchange.FetchRequest) ([]market.Candle, error) {
	args := m.Called(ctx, req)
	candles, _ := args.Get(0).([]market.Candle)
	return candles, args.Error(1)
}

func (m *mockConnector) ParseTimeframe(tf string) (int64, error) { return market.ParseTimeframe(tf) }

func (m *mockConnector) PageLimit() int { return 500 }

func TestResolvePrefersSpot(t *testing.T) {
	conn := new(mockConnector)
	conn.On("LoadMarkets", mock.Anything).Return([]market.Instrument{
		{Symbol: "ABC-USDT-SWAP", Base: "ABC", Quote: "USDT", Spot: false, Active: true},
		{Symbol: "ABC-USDT", Base: "abc", Quote: "usdt", Spot: true, Active: true},
	}, nil)

	res, err := Resolve(context.Background(), conn, "abc", "USDT")
	require.NoError(t, err)
	assert.Equal(t, "ABC-USDT", res.Market.Symbol)
	assert.True(t, res.Market.Spot)
	assert.Equal(t, "mockex", res.Market.Exchange)
	assert.Equal(t, 500, res.PageLimit)

	ms, err := res.TimeframeMillis("15m")
	require.NoError(t, err)
	assert.Equal(t, int64(900_000), ms)
	conn.AssertExpectations(t)
}

func TestResolveFallsBackToDerivative(t *testing.T) {
	conn := new(mockConnector)
	conn.On("LoadMarkets", mock.Anything).Return([]market.Instrument{
		{Symbol: "ABCBTC", Base: "ABC", Quote: "BTC", Spot: true, Active: true},
		{Symbol: "ABCUSDT", Base: "ABC", Quote: "USDT", Spot: false, Active: true},
	}, nil)

	res, err := Resolve(context.Background(), conn, "ABC", "USDT")
	require.NoError(t, err)
	assert.Equal(t, "ABCUSDT", res.Market.Symbol)
	assert.False(t, res.Market.Spot)
}

func TestResolveNotFound(t *testing.T) {
	conn := new(mockConnector)
	conn.On("LoadMarkets", mock.Anything).Return([]market.Instrument{
		{Symbol: "XYZUSDT", Base: "XYZ", Quote: "USDT", Spot: true},
	}, nil)

	_, err := Resolve(context.Background(), conn, "ABC", "USDT")
	assert.ErrorIs(t, err, ErrMarketNotFound)
	assert.ErrorContains(t, err, "ABC/USDT")
}

func TestResolveLoadError(t *testing.T) {
	conn := new(mockConnector)
	conn.On("LoadMarkets", mock.Anything).Return(nil, errors.New("timeout"))

	_, err := Resolve(context.Background(), conn, "ABC", "USDT")
	assert.ErrorContains(t, err, "timeout")
	assert.NotErrorIs(t, err, ErrMarketNotFound)
}

func TestPickTieBreakIsOrderIndependent(t *testing.T) {
	insts := []market.Instrument{
		{Symbol: "ABC_USDT_B", Base: "ABC", Quote: "USDT", Spot: true, Active: true, QuoteVolume: 10},
		{Symbol: "ABC_USDT_Z", Base: "ABC", Quote: "USDT", Spot: true, Active: false, QuoteVolume: 999},
		{Symbol: "ABC_USDT_A", Base: "ABC", Quote: "USDT", Spot: true, Active: true, QuoteVolume: 10},
		{Symbol: "ABC_USDT_C", Base: "ABC", Quote: "USDT", Spot: true, Active: true, QuoteVolume: 5},
	}
	got, ok := Pick(insts, "ABC", "USDT")
	require.True(t, ok)
	assert.Equal(t, "ABC_USDT_A", got.Symbol)

	reversed := make([]market.Instrument, len(insts))
	for i := range insts {
		reversed[len(insts)-1-i] = insts[i]
	}
	got, ok = Pick(reversed, "ABC", "USDT")
	require.True(t, ok)
	assert.Equal(t, "ABC_USDT_A", got.Symbol)
}
