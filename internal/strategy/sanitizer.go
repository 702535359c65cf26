package strategy

import (
	"math"

	"github.com/shopspring/decimal"
)

type SkipReason string

const (
	SkipNone     SkipReason = ""
	SkipInvalid  SkipReason = "invalid_quantity"
	SkipNoRules  SkipReason = "no_filter_rules"
	SkipBelowMin SkipReason = "below_min_qty"
	SkipAboveMax SkipReason = "above_max_qty"
)

// Sanitize rounds raw to the nearest step and truncates it to the step's
// decimal places. Quantities outside [MinQty, MaxQty] are skipped, not clamped.
func Sanitize(rules FilterRules, raw float64) (float64, SkipReason) {
	if raw == 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, SkipInvalid
	}
	if rules.StepSize <= 0 || math.IsNaN(rules.StepSize) || math.IsInf(rules.StepSize, 0) {
		return 0, SkipNoRules
	}
	if raw < rules.MinQty {
		return 0, SkipBelowMin
	}
	if rules.MaxQty > 0 && raw > rules.MaxQty {
		return 0, SkipAboveMax
	}
	step := decimal.NewFromFloat(rules.StepSize)
	clean := decimal.NewFromFloat(raw).Div(step).Round(0).Mul(step).Truncate(StepDecimals(rules.StepSize))
	if clean.IsZero() {
		return 0, SkipBelowMin
	}
	return clean.InexactFloat64(), SkipNone
}

// SanitizeFor looks up the rules for symbol before sanitizing.
func SanitizeFor(rules map[string]FilterRules, symbol string, raw float64) (float64, SkipReason) {
	r, ok := rules[symbol]
	if !ok {
		if raw == 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
			return 0, SkipInvalid
		}
		return 0, SkipNoRules
	}
	return Sanitize(r, raw)
}

// StepDecimals is the number of decimal places implied by a step size,
// e.g. 0.001 gives 3 and 1 gives 0.
func StepDecimals(step float64) int32 {
	exp := decimal.NewFromFloat(step).Exponent()
	if exp >= 0 {
		return 0
	}
	return -exp
}
