package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergePagesDedupLastWriteWins(t *testing.T) {
	older := []Candle{
		{OpenTime: 3000, Close: 3},
		{OpenTime: 1000, Close: 1},
		{OpenTime: 2000, Close: 2},
	}
	newer := []Candle{
		{OpenTime: 2000, Close: 20},
		{OpenTime: 4000, Close: 4},
		{OpenTime: 4000, Close: 40},
	}

	got := MergePages(older, newer)
	require.Len(t, got, 4)
	assert.True(t, got.Valid())
	assert.Equal(t, []int64{1000, 2000, 3000, 4000}, openTimes(got))
	assert.Equal(t, 20.0, got[1].Close)
	assert.Equal(t, 40.0, got[3].Close)
}

func TestMergePagesEmpty(t *testing.T) {
	assert.Nil(t, MergePages())
	assert.Nil(t, MergePages(nil, []Candle{}))
	_, ok := Series(nil).First()
	assert.False(t, ok)
}

func TestNormalizeNewestFirst(t *testing.T) {
	page := []Candle{{OpenTime: 300}, {OpenTime: 200}, {OpenTime: 100}}
	assert.Equal(t, []int64{100, 200, 300}, openTimes(Normalize(page)))
}

func TestReferencePrice(t *testing.T) {
	p, ok := Candle{Close: 0, Open: 7, High: 9, Low: 6}.ReferencePrice()
	assert.True(t, ok)
	assert.Equal(t, 7.0, p)

	p, ok = Candle{Low: 0.5}.ReferencePrice()
	assert.True(t, ok)
	assert.Equal(t, 0.5, p)

	_, ok = Candle{Volume: 10}.ReferencePrice()
	assert.False(t, ok)
}

func TestParseTimeframe(t *testing.T) {
	cases := map[string]int64{
		"1m":  60_000,
		"15m": 900_000,
		"1h":  3_600_000,
		"4h":  14_400_000,
		"1d":  DayMillis,
		"1w":  7 * DayMillis,
	}
	for tf, want := range cases {
		got, err := ParseTimeframe(tf)
		require.NoError(t, err, tf)
		assert.Equal(t, want, got, tf)
	}
	for _, bad := range []string{"", "m", "0m", "-5m", "15x"} {
		_, err := ParseTimeframe(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatMillis(t *testing.T) {
	assert.Equal(t, "1970-01-02 00:00:00 UTC", FormatMillis(DayMillis))
	assert.Equal(t, "-", FormatMillis(0))
}

func TestInstrumentMatches(t *testing.T) {
	inst := Instrument{Symbol: "ABCUSDT", Base: "abc", Quote: "USDT"}
	assert.True(t, inst.Matches("ABC", "usdt"))
	assert.False(t, inst.Matches("ABC", "USDC"))
	assert.Equal(t, "ABC/USDT", Market{Base: "abc", Quote: "usdt"}.Pair())
}

func openTimes(cs []Candle) []int64 {
	out := make([]int64, len(cs))
	for i, c := range cs {
		out[i] = c.OpenTime
	}
	return out
}
