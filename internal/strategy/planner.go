package strategy

import (
	"fmt"
	"math"
)

const (
	DefaultMinLeverage        = 5.0
	DefaultTargetLeverage     = 6.0
	DefaultMaxLeverage        = 7.0
	DefaultHedgeBuffer        = 0.005
	DefaultMarginAddFactor    = 1.01
	DefaultMarginRemoveFactor = 0.99
)

type Params struct {
	MinLeverage        float64
	TargetLeverage     float64
	MaxLeverage        float64
	HedgeBuffer        float64
	MarginAddFactor    float64
	MarginRemoveFactor float64
}

func DefaultParams() Params {
	return Params{
		MinLeverage:        DefaultMinLeverage,
		TargetLeverage:     DefaultTargetLeverage,
		MaxLeverage:        DefaultMaxLeverage,
		HedgeBuffer:        DefaultHedgeBuffer,
		MarginAddFactor:    DefaultMarginAddFactor,
		MarginRemoveFactor: DefaultMarginRemoveFactor,
	}
}

func (p Params) Validate() error {
	if p.MinLeverage <= 0 {
		return fmt.Errorf("%w: min leverage must be > 0", ErrInvalidParams)
	}
	if !(p.MinLeverage < p.TargetLeverage && p.TargetLeverage < p.MaxLeverage) {
		return fmt.Errorf("%w: leverage band must satisfy min < target < max (got %v/%v/%v)",
			ErrInvalidParams, p.MinLeverage, p.TargetLeverage, p.MaxLeverage)
	}
	if p.HedgeBuffer <= 0 || math.IsNaN(p.HedgeBuffer) {
		return fmt.Errorf("%w: hedge buffer must be > 0", ErrInvalidParams)
	}
	if p.MarginAddFactor < 1 {
		return fmt.Errorf("%w: margin add factor must be >= 1", ErrInvalidParams)
	}
	if p.MarginRemoveFactor <= 0 || p.MarginRemoveFactor > 1 {
		return fmt.Errorf("%w: margin remove factor must be in (0, 1]", ErrInvalidParams)
	}
	return nil
}

type Planner struct {
	params Params
}

func NewPlanner(params Params) (*Planner, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Planner{params: params}, nil
}

func (p *Planner) Params() Params {
	return p.params
}

// TargetShortSize is the short that offsets the account's share of the pool's
// net exposure to token: ratio × (pooled − (long − short)).
func TargetShortSize(pool PoolState, ratio float64) float64 {
	return ratio * (pool.PooledAmount - pool.NetSize())
}

// Plan decides the margin correction and the directional order for one token.
// It has no side effects; identical inputs produce identical plans.
func (p *Planner) Plan(token string, pool PoolState, ratio float64, pos PositionState) Plan {
	target := TargetShortSize(pool, ratio)
	current := pos.ShortSize()
	plan := Plan{
		Token:            token,
		Symbol:           pos.Symbol,
		ShareRatio:       ratio,
		NetSize:          pool.NetSize(),
		TargetShortSize:  target,
		CurrentShortSize: current,
		Leverage:         pos.Leverage,
		Margin:           MarginCorrection(pos, p.params),
	}
	plan.Hedge, plan.Degenerate = p.hedge(target, current)
	return plan
}

func (p *Planner) hedge(target, current float64) (HedgeAction, bool) {
	if current == 0 {
		return HedgeAction{Kind: ActionOpenShort, Quantity: target}, false
	}
	if target <= 0 {
		if current > 0 {
			return HedgeAction{Kind: ActionDecreaseShort, Quantity: current}, true
		}
		return HedgeAction{Kind: ActionIncreaseShort, Quantity: -current}, true
	}
	deviation := math.Abs(target-current) / target
	if deviation <= p.params.HedgeBuffer {
		return HedgeAction{Kind: ActionNone}, false
	}
	if current < target {
		return HedgeAction{Kind: ActionIncreaseShort, Quantity: target - current}, false
	}
	return HedgeAction{Kind: ActionDecreaseShort, Quantity: current - target}, false
}
