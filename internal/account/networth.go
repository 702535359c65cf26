package account

import (
	"glp-hedge-bot/internal/market"
	"glp-hedge-bot/internal/strategy"
)

type Summary struct {
	SharePrice            float64
	ShareBalance          float64
	ShareValueUSD         float64
	NetWorthUSD           float64
	RewardAmount          float64
	RewardSymbol          string
	RewardValueUSD        float64
	SecondaryRewardAmount float64
}

// Summarize values the pool share and adds the derivatives wallet balance and
// unrealized PnL to get net worth.
func Summarize(share strategy.PoolShare, rewards market.Rewards, snap Snapshot) Summary {
	value := share.ValueUSD()
	return Summary{
		SharePrice:            share.SharePrice,
		ShareBalance:          share.AccountBalance,
		ShareValueUSD:         value,
		NetWorthUSD:           value + snap.Balance + snap.UnrealizedPnL,
		RewardAmount:          rewards.Native,
		RewardSymbol:          rewards.NativeSymbol,
		RewardValueUSD:        rewards.NativeUSD,
		SecondaryRewardAmount: rewards.Secondary,
	}
}
