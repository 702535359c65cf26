package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"glp-hedge-bot/internal/binance"
	"glp-hedge-bot/internal/strategy"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var ErrNoPosition = errors.New("no position")

// Venue is the subset of the derivatives client used for account reads and
// position setup.
type Venue interface {
	FilterRules(ctx context.Context) (map[string]strategy.FilterRules, error)
	Position(ctx context.Context, symbol string) (binance.Position, error)
	Balances(ctx context.Context) (binance.Balances, error)
	SetMarginType(ctx context.Context, symbol, marginType string) error
	SetLeverage(ctx context.Context, symbol string, leverage int) error
}

type Options struct {
	MarginType string
	Leverage   int
	Limiter    *rate.Limiter
}

type Snapshot struct {
	Balance       float64
	Available     float64
	UnrealizedPnL float64
}

type Account struct {
	venue      Venue
	limiter    *rate.Limiter
	marginType string
	leverage   int
	log        *zap.Logger
}

func New(venue Venue, opts Options, log *zap.Logger) *Account {
	if log == nil {
		log = zap.NewNop()
	}
	return &Account{
		venue:      venue,
		limiter:    opts.Limiter,
		marginType: strings.ToUpper(strings.TrimSpace(opts.MarginType)),
		leverage:   opts.Leverage,
		log:        log,
	}
}

func (a *Account) wait(ctx context.Context) error {
	if a.limiter == nil {
		return nil
	}
	return a.limiter.Wait(ctx)
}

func (a *Account) FilterRules(ctx context.Context) (map[string]strategy.FilterRules, error) {
	if err := a.wait(ctx); err != nil {
		return nil, err
	}
	return a.venue.FilterRules(ctx)
}

// Position reads the venue position for symbol. When the venue reports a
// margin type or leverage setting other than the configured one, it is
// switched before returning; setup failures are logged and the read stands.
func (a *Account) Position(ctx context.Context, symbol string) (strategy.PositionState, error) {
	if err := a.wait(ctx); err != nil {
		return strategy.PositionState{}, err
	}
	pos, err := a.venue.Position(ctx, symbol)
	if err != nil {
		if errors.Is(err, binance.ErrPositionNotFound) {
			return strategy.PositionState{}, fmt.Errorf("%w: %s", ErrNoPosition, symbol)
		}
		return strategy.PositionState{}, err
	}
	a.ensureSetup(ctx, symbol, pos)
	return pos.PositionState, nil
}

func (a *Account) ensureSetup(ctx context.Context, symbol string, pos binance.Position) {
	if a.marginType != "" && pos.MarginType != a.marginType {
		if err := a.wait(ctx); err != nil {
			return
		}
		if err := a.venue.SetMarginType(ctx, symbol, a.marginType); err != nil {
			a.log.Warn("margin type change failed", zap.String("symbol", symbol), zap.String("margin_type", a.marginType), zap.Error(err))
		} else {
			a.log.Info("margin type changed", zap.String("symbol", symbol), zap.String("margin_type", a.marginType))
		}
	}
	if a.leverage > 0 && pos.LeverageSetting != a.leverage {
		if err := a.wait(ctx); err != nil {
			return
		}
		if err := a.venue.SetLeverage(ctx, symbol, a.leverage); err != nil {
			a.log.Warn("initial leverage change failed", zap.String("symbol", symbol), zap.Int("leverage", a.leverage), zap.Error(err))
		} else {
			a.log.Info("initial leverage changed", zap.String("symbol", symbol), zap.Int("leverage", a.leverage))
		}
	}
}

func (a *Account) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := a.wait(ctx); err != nil {
		return Snapshot{}, err
	}
	balances, err := a.venue.Balances(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Balance:       balances.WalletBalance,
		Available:     balances.AvailableBalance,
		UnrealizedPnL: balances.UnrealizedPnL,
	}, nil
}
