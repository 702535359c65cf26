package strategy

import "math"

// LeverageOutOfBand reports whether leverage sits on or outside the
// configured band. Both bounds are inclusive.
func LeverageOutOfBand(leverage float64, params Params) bool {
	return leverage >= params.MaxLeverage || leverage <= params.MinLeverage
}

// MarginCorrection returns the margin change that brings the position back to
// the target leverage, or a none action while leverage stays inside the band.
func MarginCorrection(pos PositionState, params Params) MarginAction {
	if !LeverageOutOfBand(pos.Leverage, params) {
		return MarginAction{Direction: MarginNone}
	}
	delta := math.Abs(pos.NotionalUSD)/params.TargetLeverage - pos.IsolatedMargin
	switch {
	case delta > 0:
		return MarginAction{Direction: MarginAdd, Amount: delta * params.MarginAddFactor}
	case delta < 0:
		return MarginAction{Direction: MarginRemove, Amount: math.Abs(delta) * params.MarginRemoveFactor}
	default:
		return MarginAction{Direction: MarginNone}
	}
}
