package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"tgescan/internal/gateway/exchange"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/exchangeInfo":
			_, _ = w.Write([]byte(`{"timezone":"UTC","serverTime":1,"symbols":[
				{"symbol":"ABCUSDT","status":"TRADING","baseAsset":"ABC","quoteAsset":"USDT","isSpotTradingAllowed":true,"filters":[]},
				{"symbol":"ABCBTC","status":"BREAK","baseAsset":"ABC","quoteAsset":"BTC","isSpotTradingAllowed":true,"filters":[]}]}`))
		case "/fapi/v1/exchangeInfo":
			_, _ = w.Write([]byte(`{"timezone":"UTC","serverTime":1,"symbols":[
				{"symbol":"XYZUSDT","pair":"XYZUSDT","contractType":"PERPETUAL","status":"TRADING","baseAsset":"XYZ","quoteAsset":"USDT","filters":[]},
				{"symbol":"XYZUSDT_250627","pair":"XYZUSDT","contractType":"CURRENT_QUARTER","status":"TRADING","baseAsset":"XYZ","quoteAsset":"USDT","filters":[]}]}`))
		case "/api/v3/klines", "/fapi/v1/klines":
			assert.Equal(t, "900000", r.URL.Query().Get("startTime"))
			assert.Equal(t, "2", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`[[1800000,"1.0","2.0","0.5","1.5","100",2699999,"150",10,"50","75","0"],
				[900000,"1.0","2.0","0.5","1.5","100",1799999,"150",10,"50","75","0"]]`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestLoadMarketsSpotAndPerpetuals(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	conn, err := New(Config{ID: "binance", Settings: exchange.Settings{RESTBaseURL: srv.URL}, FuturesBaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, 1000, conn.PageLimit())

	insts, err := conn.LoadMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, insts, 3)
	assert.True(t, insts[0].Spot)
	assert.True(t, insts[0].Active)
	assert.False(t, insts[1].Active)
	assert.Equal(t, "XYZUSDT", insts[2].Symbol)
	assert.False(t, insts[2].Spot)
}

func TestFetchOHLCVAscending(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	conn, err := New(Config{ID: "binance", Settings: exchange.Settings{RESTBaseURL: srv.URL}, FuturesBaseURL: srv.URL})
	require.NoError(t, err)

	for _, spot := range []bool{true, false} {
		candles, err := conn.FetchOHLCV(context.Background(), exchange.FetchRequest{
			Symbol: "abcusdt", Spot: spot, Timeframe: "15m", Since: 900000, Limit: 2,
		})
		require.NoError(t, err)
		require.Len(t, candles, 2)
		assert.Equal(t, int64(900000), candles[0].OpenTime)
		assert.Equal(t, 100.0, candles[0].Volume)
		assert.Equal(t, 1.5, candles[1].Close)
	}
}

func TestUSConnectorHasNoDerivatives(t *testing.T) {
	conn, err := NewUS(exchange.Settings{RESTBaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	assert.Equal(t, "binanceus", conn.ID())
	_, err = conn.FetchOHLCV(context.Background(), exchange.FetchRequest{Symbol: "ABCUSD", Timeframe: "15m"})
	assert.ErrorContains(t, err, "no derivatives")
}

func TestFetchOHLCVForwardsConfiguredParams(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = w.Write([]byte(`[[900000,"1.0","2.0","0.5","1.5","100",1799999,"150",10,"50","75","0"]]`))
	}))
	defer srv.Close()

	conn, err := New(Config{ID: "binance", Settings: exchange.Settings{
		RESTBaseURL: srv.URL,
		Params:      map[string]string{"timeZone": "8"},
	}})
	require.NoError(t, err)

	_, err = conn.FetchOHLCV(context.Background(), exchange.FetchRequest{
		Symbol: "ABCUSDT", Spot: true, Timeframe: "15m", Since: 900000, Limit: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "8", got.Get("timeZone"))
	assert.Equal(t, "ABCUSDT", got.Get("symbol"))
	assert.Equal(t, "900000", got.Get("startTime"))
}

func TestFetchOHLCVRejectsMalformedPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[900000,"1.0","2.0","0.5","n/a","100",1799999,"150",10,"50","75","0"]]`))
	}))
	defer srv.Close()

	conn, err := New(Config{ID: "binance", Settings: exchange.Settings{RESTBaseURL: srv.URL}})
	require.NoError(t, err)

	_, err = conn.FetchOHLCV(context.Background(), exchange.FetchRequest{
		Symbol: "ABCUSDT", Spot: true, Timeframe: "15m", Since: 900000, Limit: 2,
	})
	assert.ErrorContains(t, err, `bad number "n/a"`)
}
