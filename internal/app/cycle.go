package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"glp-hedge-bot/internal/account"
	"glp-hedge-bot/internal/binance"
	"glp-hedge-bot/internal/exec"
	"glp-hedge-bot/internal/market"
	"glp-hedge-bot/internal/strategy"
	"glp-hedge-bot/internal/telemetry"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TokenReport is one hedge target's outcome within a cycle. Result is nil
// when the token's state could not be read.
type TokenReport struct {
	Token  string
	Symbol string
	Plan   strategy.Plan
	Result *exec.Result
	Err    error
}

type CycleReport struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Aborted     bool
	Err         error
	Tokens      []TokenReport
	TokenErrors int
	Summary     *account.Summary
	Telemetry   *telemetry.Record
}

// RunCycle runs exactly one hedge cycle: aggregate reads, then each target in
// turn, then the account snapshot and telemetry. A failed aggregate read
// aborts the cycle and is returned; per-token failures are only counted.
func (a *App) RunCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{StartedAt: a.now()}
	if !a.prepared {
		if err := a.Prepare(ctx); err != nil {
			return report, err
		}
	}
	if a.strategy.Current() != strategy.StateIdle {
		return report, strategy.ErrSchedulerState
	}
	a.strategy.Apply(strategy.EventStart)
	defer a.strategy.Apply(strategy.EventComplete)

	var (
		share   strategy.PoolShare
		rewards market.Rewards
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := a.market.PoolShare(gctx)
		if err != nil {
			return fmt.Errorf("pool share: %w", err)
		}
		share = s
		return nil
	})
	g.Go(func() error {
		r, err := a.market.Rewards(gctx)
		if err != nil {
			return fmt.Errorf("rewards: %w", err)
		}
		rewards = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return a.abort(ctx, report, err)
	}
	ratio, err := share.Ratio()
	if err != nil {
		return a.abort(ctx, report, err)
	}

	for _, token := range a.targets {
		tr := a.runToken(ctx, token, ratio)
		if tr.Err != nil {
			report.TokenErrors++
		}
		report.Tokens = append(report.Tokens, tr)
	}

	snap, err := a.venue.Snapshot(ctx)
	if err != nil {
		a.log.Warn("account snapshot failed", zap.Error(err))
		a.reporter.ReportError(ctx, telemetry.ErrorRecord{
			Time:     a.now(),
			Function: "Snapshot",
			Message:  err.Error(),
		})
	} else {
		summary := account.Summarize(share, rewards, snap)
		report.Summary = &summary
		a.log.Info("net worth",
			zap.Float64("share_price", summary.SharePrice),
			zap.Float64("share_balance", summary.ShareBalance),
			zap.Float64("share_value_usd", summary.ShareValueUSD),
			zap.Float64("net_worth_usd", summary.NetWorthUSD),
			zap.Float64("reward", summary.RewardAmount),
			zap.String("reward_symbol", summary.RewardSymbol),
			zap.Float64("reward_price", rewards.NativePrice),
			zap.Float64("reward_usd", summary.RewardValueUSD),
			zap.Float64("secondary_reward", summary.SecondaryRewardAmount),
		)
		if report.TokenErrors == 0 {
			rec := a.emitTelemetry(ctx, summary)
			report.Telemetry = &rec
		}
	}

	report.CompletedAt = a.now()
	a.metrics.CyclesCompleted.Inc()
	a.recordCycle(ctx, report)
	a.log.Info("hedge cycle complete",
		zap.Int("tokens", len(report.Tokens)),
		zap.Int("token_errors", report.TokenErrors),
		zap.Duration("duration", report.CompletedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (a *App) abort(ctx context.Context, report CycleReport, err error) (CycleReport, error) {
	if !errors.Is(err, strategy.ErrProviderFetch) {
		err = fmt.Errorf("%w: %w", strategy.ErrProviderFetch, err)
	}
	report.Aborted = true
	report.Err = err
	report.CompletedAt = a.now()
	a.metrics.CyclesAborted.Inc()
	a.log.Error("hedge cycle aborted", zap.Error(err))
	a.reporter.ReportError(ctx, telemetry.ErrorRecord{
		Time:     report.CompletedAt,
		Function: "fetchPoolState",
		Message:  err.Error(),
	})
	a.recordCycle(ctx, report)
	return report, err
}

func (a *App) runToken(ctx context.Context, token market.Token, ratio float64) TokenReport {
	symbol := binance.SymbolFor(token.Symbol)
	tr := TokenReport{Token: token.Symbol, Symbol: symbol}

	var (
		pool strategy.PoolState
		pos  strategy.PositionState
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := a.market.PoolReserves(gctx, token)
		if err != nil {
			return fmt.Errorf("pool reserves %s: %w", token.Symbol, err)
		}
		pool = p
		return nil
	})
	g.Go(func() error {
		p, err := a.venue.Position(gctx, symbol)
		if err != nil {
			return fmt.Errorf("position %s: %w", symbol, err)
		}
		pos = p
		return nil
	})
	if err := g.Wait(); err != nil {
		tr.Err = err
		a.metrics.TokenErrors.Inc()
		a.log.Warn("token state read failed", zap.String("token", token.Symbol), zap.String("symbol", symbol), zap.Error(err))
		a.reporter.ReportError(ctx, telemetry.ErrorRecord{
			Time:       a.now(),
			Function:   "fetchTokenState",
			Parameters: []string{token.Symbol, symbol},
			Message:    err.Error(),
		})
		return tr
	}

	plan := a.planner.Plan(token.Symbol, pool, ratio, pos)
	if plan.Symbol == "" {
		plan.Symbol = symbol
	}
	tr.Plan = plan
	a.log.Info("hedge plan",
		zap.String("token", plan.Token),
		zap.String("symbol", plan.Symbol),
		zap.Float64("target_short", plan.TargetShortSize),
		zap.Float64("current_short", plan.CurrentShortSize),
		zap.Float64("leverage", plan.Leverage),
		zap.String("action", string(plan.Hedge.Kind)),
		zap.Float64("qty", plan.Hedge.Quantity),
		zap.String("margin", string(plan.Margin.Direction)),
		zap.Float64("margin_amount", plan.Margin.Amount),
		zap.Bool("degenerate", plan.Degenerate),
	)
	res := a.executor.Execute(ctx, plan, a.rules)
	tr.Result = &res
	return tr
}

func (a *App) emitTelemetry(ctx context.Context, summary account.Summary) telemetry.Record {
	rec := telemetry.Record{
		Time:                  a.now(),
		SharePrice:            summary.SharePrice,
		ShareBalance:          summary.ShareBalance,
		ShareValueUSD:         summary.ShareValueUSD,
		NetWorthUSD:           summary.NetWorthUSD,
		RewardAmount:          summary.RewardAmount,
		RewardValueUSD:        summary.RewardValueUSD,
		SecondaryRewardAmount: summary.SecondaryRewardAmount,
	}
	a.metrics.NetWorthUSD.Set(rec.NetWorthUSD)
	a.metrics.ShareValueUSD.Set(rec.ShareValueUSD)
	if a.sink != nil {
		if err := a.sink.Emit(ctx, rec); err != nil {
			a.log.Warn("telemetry emit failed", zap.Error(err))
		}
	}
	return rec
}
