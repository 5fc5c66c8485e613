package mexc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"tgescan/internal/gateway/exchange"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMexcKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/api/v3/exchangeInfo":
			_, _ = w.Write([]byte(`{"symbols":[{"symbol":"ABCUSDT","status":"1","baseAsset":"ABC","quoteAsset":"USDT"}]}`))
		case "/api/v3/klines":
			assert.Equal(t, "60m", q.Get("interval"))
			assert.Equal(t, "3600000", q.Get("startTime"))
			_, _ = w.Write([]byte(`[[3600000,"1","2","0.5","1.5","10",7199999,"15"]]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	conn, err := New(exchange.Settings{RESTBaseURL: srv.URL})
	require.NoError(t, err)

	insts, err := conn.LoadMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, insts, 1)
	assert.True(t, insts[0].Active)

	candles, err := conn.FetchOHLCV(context.Background(), exchange.FetchRequest{
		Symbol: "ABCUSDT", Spot: true, Timeframe: "1h", Since: 3_600_000, Limit: 5,
	})
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 10.0, candles[0].Volume)
}

func TestMexcErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	conn, err := New(exchange.Settings{RESTBaseURL: srv.URL})
	require.NoError(t, err)
	_, err = conn.FetchOHLCV(context.Background(), exchange.FetchRequest{Symbol: "NOPE", Spot: true, Timeframe: "15m"})
	assert.ErrorContains(t, err, "Invalid symbol")
}
