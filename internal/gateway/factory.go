package gateway

import (
	"tgescan/internal/gateway/binance"
	"tgescan/internal/gateway/bybit"
	"tgescan/internal/gateway/exchange"
	"tgescan/internal/gateway/gate"
	"tgescan/internal/gateway/kucoin"
	"tgescan/internal/gateway/mexc"
	"tgescan/internal/gateway/okx"
)

// RegisterAll wires every built-in connector into reg.
func RegisterAll(reg *exchange.Registry) {
	reg.Register("binance", binance.NewSpotAndFutures)
	reg.Register("binanceus", binance.NewUS)
	reg.Register("gate", gate.New)
	reg.Register("gateio", gate.New)
	reg.Register("okx", okx.New)
	reg.Register("bybit", bybit.New)
	reg.Register("kucoin", kucoin.New)
	reg.Register("mexc", mexc.New)
}

// NewRegistry returns a registry holding the built-in connectors.
func NewRegistry() *exchange.Registry {
	reg := exchange.NewRegistry()
	RegisterAll(reg)
	return reg
}
