package app

import (
	"context"

	"glp-hedge-bot/internal/account"
	"glp-hedge-bot/internal/market"
	"glp-hedge-bot/internal/strategy"
	"glp-hedge-bot/internal/timescale"
)

// MarketData is the on-chain side read once per cycle.
type MarketData interface {
	Universe(ctx context.Context) ([]market.Token, error)
	PoolReserves(ctx context.Context, token market.Token) (strategy.PoolState, error)
	PoolShare(ctx context.Context) (strategy.PoolShare, error)
	Rewards(ctx context.Context) (market.Rewards, error)
}

// PositionVenue is the derivatives account side. Position returns an error
// wrapping account.ErrNoPosition when the venue has no entry for symbol.
type PositionVenue interface {
	FilterRules(ctx context.Context) (map[string]strategy.FilterRules, error)
	Position(ctx context.Context, symbol string) (strategy.PositionState, error)
	Snapshot(ctx context.Context) (account.Snapshot, error)
}

type Notifier interface {
	Send(ctx context.Context, text string) error
}

// PlanQueue is the asynchronous plan writer, satisfied by *timescale.Writer.
type PlanQueue interface {
	Start(ctx context.Context)
	EnqueuePlan(row timescale.PlanRow)
	Dropped() (records, plans uint64)
}
