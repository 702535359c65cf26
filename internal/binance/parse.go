package binance

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"glp-hedge-bot/internal/strategy"

	"github.com/adshao/go-binance/v2/futures"
)

const lotSizeFilter = "LOT_SIZE"

// filterRulesFromSymbols extracts LOT_SIZE rules for perpetual contracts.
func filterRulesFromSymbols(symbols []futures.Symbol) map[string]strategy.FilterRules {
	rules := make(map[string]strategy.FilterRules)
	for _, symbol := range symbols {
		if symbol.ContractType != futures.ContractTypePerpetual {
			continue
		}
		for _, filter := range symbol.Filters {
			if stringFromMap(filter, "filterType") != lotSizeFilter {
				continue
			}
			r := strategy.FilterRules{
				MinQty:   floatFromMap(filter, "minQty"),
				MaxQty:   floatFromMap(filter, "maxQty"),
				StepSize: floatFromMap(filter, "stepSize"),
			}
			if r.Valid() {
				rules[symbol.Symbol] = r
			}
			break
		}
	}
	return rules
}

func positionFromRisk(risk *futures.PositionRisk) (strategy.PositionState, error) {
	var p fieldParser
	pos := strategy.PositionState{
		Symbol:           risk.Symbol,
		SignedSize:       p.float("positionAmt", risk.PositionAmt),
		NotionalUSD:      p.float("notional", risk.Notional),
		EntryPrice:       p.float("entryPrice", risk.EntryPrice),
		MarkPrice:        p.float("markPrice", risk.MarkPrice),
		LiquidationPrice: p.float("liquidationPrice", risk.LiquidationPrice),
		IsolatedMargin:   p.float("isolatedMargin", risk.IsolatedMargin),
		UnrealizedPnL:    p.float("unRealizedProfit", risk.UnRealizedProfit),
	}
	if p.err != nil {
		return strategy.PositionState{}, fmt.Errorf("%w: position risk %s: %v", strategy.ErrProviderFetch, risk.Symbol, p.err)
	}
	pos.Leverage = strategy.EffectiveLeverage(pos.NotionalUSD, pos.IsolatedMargin)
	return pos, nil
}

// fieldParser parses venue decimal strings strictly and keeps the first
// failure. A malformed field must never read as zero.
type fieldParser struct {
	err error
}

func (p *fieldParser) float(name, raw string) float64 {
	if p.err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		p.err = fmt.Errorf("malformed %s %q", name, raw)
		return 0
	}
	return f
}

func stringFromMap(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func floatFromMap(m map[string]interface{}, keys ...string) float64 {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if f, ok := floatFromAny(v); ok {
				return f
			}
		}
	}
	return 0
}

func floatFromAny(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func parseFloat(s string) float64 {
	f, _ := floatFromAny(s)
	return f
}

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
