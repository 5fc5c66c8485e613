package collector

import (
	"encoding/json"
	"testing"

	"tgescan/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectDayCandleContaining(t *testing.T) {
	T := int64(20_000) * day
	days := []market.Candle{{OpenTime: T - 2*day}, {OpenTime: T - day}, {OpenTime: T}, {OpenTime: T + day}}
	got, ok := SelectDayCandle(days, T+3*hour, day)
	require.True(t, ok)
	assert.Equal(t, T, got.OpenTime)
}

func TestSelectDayCandleFallsBackToLatestBefore(t *testing.T) {
	T := int64(20_000) * day
	days := []market.Candle{{OpenTime: T - 2*day}, {OpenTime: T - day}, {OpenTime: T + day}}
	got, ok := SelectDayCandle(days, T+3*hour, day)
	require.True(t, ok)
	assert.Equal(t, T-day, got.OpenTime)
}

func TestSelectDayCandleFallsBackToFirst(t *testing.T) {
	T := int64(20_000) * day
	days := []market.Candle{{OpenTime: T + day}, {OpenTime: T + 2*day}}
	got, ok := SelectDayCandle(days, T, day)
	require.True(t, ok)
	assert.Equal(t, T+day, got.OpenTime)

	_, ok = SelectDayCandle(nil, T, day)
	assert.False(t, ok)
}

func TestQuoteVolumeReferencePrice(t *testing.T) {
	v := QuoteVolume(market.Candle{Close: 0, Open: 7, High: 8, Low: 6, Volume: 1})
	require.NotNil(t, v)
	assert.Equal(t, 7.0, *v)

	v = QuoteVolume(market.Candle{Close: 0, Open: 0, High: 7, Low: 3, Volume: 2})
	require.NotNil(t, v)
	assert.Equal(t, 14.0, *v)

	v = QuoteVolume(market.Candle{Close: 1.2, Volume: 100})
	require.NotNil(t, v)
	assert.Equal(t, 120.0, *v)

	assert.Nil(t, QuoteVolume(market.Candle{Close: 1, Volume: 0}))
	assert.Nil(t, QuoteVolume(market.Candle{Volume: 5}))
}

func TestApplyDayRatio(t *testing.T) {
	s := Stats{TGEOpen: 2}
	s.applyDay(market.Candle{OpenTime: 1, Open: 3, High: 10})
	require.NotNil(t, s.DayDeltaRatio)
	assert.Equal(t, 5.0, *s.DayDeltaRatio)
	assert.Equal(t, 3.0, *s.DayOpen)

	zero := Stats{TGEOpen: 0}
	zero.applyDay(market.Candle{High: 10})
	assert.Nil(t, zero.DayDeltaRatio)
	assert.Equal(t, DayAvailable, zero.Day)
}

func TestDayStatusJSON(t *testing.T) {
	b, err := json.Marshal(Stats{Day: DaySkippedAfterTGE})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"day_status":"skipped_after_tge"`)

	var s Stats
	require.NoError(t, json.Unmarshal([]byte(`{"day_status":"unavailable"}`), &s))
	assert.Equal(t, DayUnavailable, s.Day)
	assert.Equal(t, "not_requested", DayNotRequested.String())
}
