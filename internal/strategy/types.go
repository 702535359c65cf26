package strategy

import (
	"fmt"
	"math"
)

type State string

type Event string

const (
	StateIdle    State = "IDLE"
	StateRunning State = "RUNNING"
)

const (
	EventStart    Event = "START"
	EventComplete Event = "COMPLETE"
)

// PoolState is the pool composition for one token, in token units.
// It is read once per cycle and never mutated afterwards.
type PoolState struct {
	Token           string
	PooledAmount    float64
	GlobalLongSize  float64
	GlobalShortSize float64
}

func (p PoolState) NetSize() float64 {
	return p.GlobalLongSize - p.GlobalShortSize
}

type PoolShare struct {
	TotalSupply    float64
	AccountBalance float64
	SharePrice     float64
}

// Ratio returns the account's fraction of the pool supply.
func (s PoolShare) Ratio() (float64, error) {
	if s.TotalSupply <= 0 || math.IsNaN(s.TotalSupply) || math.IsInf(s.TotalSupply, 0) {
		return 0, fmt.Errorf("%w: pool total supply %v", ErrProviderFetch, s.TotalSupply)
	}
	if s.AccountBalance < 0 || math.IsNaN(s.AccountBalance) {
		return 0, fmt.Errorf("%w: pool share balance %v", ErrProviderFetch, s.AccountBalance)
	}
	ratio := s.AccountBalance / s.TotalSupply
	if ratio > 1 {
		return 0, fmt.Errorf("%w: pool share ratio %v exceeds 1", ErrProviderFetch, ratio)
	}
	return ratio, nil
}

func (s PoolShare) ValueUSD() float64 {
	return s.AccountBalance * s.SharePrice
}

// PositionState is the venue's view of one derivative position. SignedSize is
// positive for long and negative for short, as reported by the venue.
type PositionState struct {
	Symbol           string
	SignedSize       float64
	NotionalUSD      float64
	EntryPrice       float64
	MarkPrice        float64
	LiquidationPrice float64
	Leverage         float64
	IsolatedMargin   float64
	UnrealizedPnL    float64
}

func (p PositionState) ShortSize() float64 {
	if p.SignedSize == 0 {
		return 0
	}
	return -p.SignedSize
}

// EffectiveLeverage is |notional| / isolated margin, or 0 without margin.
func EffectiveLeverage(notionalUSD, isolatedMargin float64) float64 {
	if isolatedMargin <= 0 {
		return 0
	}
	return math.Abs(notionalUSD) / isolatedMargin
}

type FilterRules struct {
	MinQty   float64
	MaxQty   float64
	StepSize float64
}

func (r FilterRules) Valid() bool {
	return r.StepSize > 0 && r.MaxQty >= r.MinQty
}

type ActionKind string

const (
	ActionNone          ActionKind = "NONE"
	ActionOpenShort     ActionKind = "OPEN_SHORT"
	ActionIncreaseShort ActionKind = "INCREASE_SHORT"
	ActionDecreaseShort ActionKind = "DECREASE_SHORT"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type HedgeAction struct {
	Kind     ActionKind
	Quantity float64
}

// Side is the order side that carries out the action.
func (h HedgeAction) Side() Side {
	if h.Kind == ActionDecreaseShort {
		return SideBuy
	}
	return SideSell
}

func (h HedgeAction) IsNone() bool {
	return h.Kind == "" || h.Kind == ActionNone
}

type MarginDirection string

const (
	MarginNone   MarginDirection = "NONE"
	MarginAdd    MarginDirection = "ADD"
	MarginRemove MarginDirection = "REMOVE"
)

type MarginAction struct {
	Direction MarginDirection
	Amount    float64
}

func (m MarginAction) IsNone() bool {
	return m.Direction == "" || m.Direction == MarginNone
}

// Plan is the planner's output for one token in one cycle.
type Plan struct {
	Token            string
	Symbol           string
	ShareRatio       float64
	NetSize          float64
	TargetShortSize  float64
	CurrentShortSize float64
	Leverage         float64
	Margin           MarginAction
	Hedge            HedgeAction
	// Degenerate is set when the target is not positive while a position is
	// open; the hedge then flattens the position.
	Degenerate bool
}

type Fill struct {
	Symbol       string
	Side         Side
	Quantity     float64
	AveragePrice float64
}
