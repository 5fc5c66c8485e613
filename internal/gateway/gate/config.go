package gate

import (
	"time"

	"tgescan/internal/gateway/exchange"
)

const (
	defaultGateREST     = "https://api.gateio.ws/api/v4"
	gateSettle          = "usdt"
	gateMaxHistoryLimit = 1000
)

func withDefaults(s exchange.Settings) exchange.Settings {
	return s.WithDefaults(exchange.Settings{
		RESTBaseURL:       defaultGateREST,
		HTTPTimeout:       15 * time.Second,
		PageLimit:         gateMaxHistoryLimit,
		RequestsPerSecond: 8,
	})
}

// gate 的 K 线周期写法与通用写法不同的部分。
var intervalAliases = map[string]string{
	"1w": "7d",
	"1M": "30d",
}

func gateInterval(tf string) string {
	if alias, ok := intervalAliases[tf]; ok {
		return alias
	}
	return tf
}
