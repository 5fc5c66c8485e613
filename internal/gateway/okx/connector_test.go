package okx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"tgescan/internal/gateway/exchange"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOKXMarketsAndCandles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/api/v5/public/instruments":
			if q.Get("instType") == "SPOT" {
				_, _ = w.Write([]byte(`{"code":"0","data":[{"instId":"ABC-USDT","baseCcy":"ABC","quoteCcy":"USDT","state":"live"}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"code":"0","data":[{"instId":"ABC-USDT-SWAP","uly":"ABC-USDT","baseCcy":"","quoteCcy":"","state":"suspend"}]}`))
		case "/api/v5/market/history-candles":
			assert.Equal(t, "1Dutc", q.Get("bar"))
			assert.Equal(t, "86399999", q.Get("before"))
			assert.Equal(t, "432000000", q.Get("after"))
			_, _ = w.Write([]byte(`{"code":"0","data":[
				["172800000","2","3","1","2.5","10","11","25","1"],
				["86400000","1","2","0.5","1.5","20","21","30","1"]]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	conn, err := New(exchange.Settings{RESTBaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, 100, conn.PageLimit())

	insts, err := conn.LoadMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, insts, 2)
	assert.True(t, insts[0].Spot)
	assert.Equal(t, "ABC", insts[1].Base)
	assert.False(t, insts[1].Active)

	candles, err := conn.FetchOHLCV(context.Background(), exchange.FetchRequest{
		Symbol: "ABC-USDT-SWAP", Timeframe: "1d", Since: 86_400_000, Limit: 4,
	})
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(86_400_000), candles[0].OpenTime)
	assert.Equal(t, 21.0, candles[0].Volume)
}

func TestOKXErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"51001","msg":"Instrument ID does not exist","data":[]}`))
	}))
	defer srv.Close()

	conn, err := New(exchange.Settings{RESTBaseURL: srv.URL})
	require.NoError(t, err)
	_, err = conn.FetchOHLCV(context.Background(), exchange.FetchRequest{Symbol: "NOPE-USDT", Spot: true, Timeframe: "15m"})
	assert.ErrorContains(t, err, "51001")
}

func TestBarFor(t *testing.T) {
	assert.Equal(t, "15m", barFor("15m"))
	assert.Equal(t, "1H", barFor("1h"))
	assert.Equal(t, "1Dutc", barFor("1d"))
	assert.Equal(t, "1Wutc", barFor("1w"))
}
