package binance

import "strings"

const quoteAsset = "USDT"

var wrappedAssets = map[string]string{
	"WBTC": "BTC",
	"WETH": "ETH",
}

// SymbolFor maps a pool token symbol to its USDT-margined contract symbol.
func SymbolFor(tokenSymbol string) string {
	base := strings.ToUpper(strings.TrimSpace(tokenSymbol))
	if mapped, ok := wrappedAssets[base]; ok {
		base = mapped
	}
	return base + quoteAsset
}
