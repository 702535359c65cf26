package gmx

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// PriceDecimals is the fixed-point precision of vault prices and USD sizes.
	PriceDecimals = 30
	// RewardDecimals applies to claimable amounts from the reward trackers.
	RewardDecimals = 18
)

// ToFloat converts a fixed-point integer with the given decimals to float64.
func ToFloat(v *big.Int, decimals uint8) float64 {
	if v == nil {
		return 0
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).InexactFloat64()
}

// Mid returns (a + b) / 2 without mutating either argument.
func Mid(a, b *big.Int) *big.Int {
	sum := new(big.Int).Add(a, b)
	return sum.Quo(sum, big.NewInt(2))
}
