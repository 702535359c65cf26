package exec

import (
	"context"
	"fmt"
	"time"

	"glp-hedge-bot/internal/metrics"
	"glp-hedge-bot/internal/strategy"
	"glp-hedge-bot/internal/telemetry"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Venue interface {
	AdjustMargin(ctx context.Context, symbol string, amount float64, direction strategy.MarginDirection) error
	MarketOrder(ctx context.Context, symbol string, side strategy.Side, quantity float64) (strategy.Fill, error)
}

// Reporter receives confirmations and error records. Implementations must not
// block the cycle on delivery failures.
type Reporter interface {
	Notify(ctx context.Context, text string)
	ReportError(ctx context.Context, rec telemetry.ErrorRecord)
}

type Options struct {
	DryRun   bool
	Limiter  *rate.Limiter
	Metrics  *metrics.Metrics
	Reporter Reporter
}

type Result struct {
	MarginAmount  float64
	MarginApplied bool
	MarginErr     error
	Quantity      float64
	Skip          strategy.SkipReason
	Fill          *strategy.Fill
	OrderErr      error
	DryRun        bool
}

type Executor struct {
	venue    Venue
	limiter  *rate.Limiter
	metrics  *metrics.Metrics
	reporter Reporter
	dryRun   bool
	log      *zap.Logger
	now      func() time.Time
}

func New(venue Venue, opts Options, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Executor{
		venue:    venue,
		limiter:  opts.Limiter,
		metrics:  m,
		reporter: opts.Reporter,
		dryRun:   opts.DryRun,
		log:      log,
		now:      time.Now,
	}
}

// Execute applies a plan: the margin correction first, then the sanitized
// directional order. Failures are reported and returned in the result; no
// call is retried within the cycle.
func (e *Executor) Execute(ctx context.Context, plan strategy.Plan, rules map[string]strategy.FilterRules) Result {
	res := Result{DryRun: e.dryRun}
	e.applyMargin(ctx, plan, &res)
	if plan.Hedge.IsNone() {
		return res
	}
	qty, skip := strategy.SanitizeFor(rules, plan.Symbol, plan.Hedge.Quantity)
	if skip != strategy.SkipNone {
		res.Skip = skip
		e.metrics.QuantitySkipped.Inc()
		e.logSkip(plan, skip, rules[plan.Symbol])
		return res
	}
	res.Quantity = qty
	side := plan.Hedge.Side()
	if e.dryRun {
		e.log.Info("dry run order",
			zap.String("symbol", plan.Symbol),
			zap.String("side", string(side)),
			zap.Float64("qty", qty),
		)
		return res
	}
	if err := e.wait(ctx); err != nil {
		res.OrderErr = err
		return res
	}
	fill, err := e.venue.MarketOrder(ctx, plan.Symbol, side, qty)
	if err != nil {
		res.OrderErr = err
		e.metrics.OrdersFailed.Inc()
		e.log.Warn("market order failed", zap.String("symbol", plan.Symbol), zap.String("side", string(side)), zap.Float64("qty", qty), zap.Error(err))
		e.reportError(ctx, "MarketOrder", err, plan.Symbol, string(side), decimal.NewFromFloat(qty).String())
		return res
	}
	res.Fill = &fill
	e.metrics.OrdersPlaced.Inc()
	text := OrderConfirmation(fill)
	e.log.Info("market order filled", zap.String("symbol", fill.Symbol), zap.String("side", string(fill.Side)), zap.Float64("qty", fill.Quantity), zap.Float64("avg_price", fill.AveragePrice))
	e.notify(ctx, text)
	return res
}

func (e *Executor) applyMargin(ctx context.Context, plan strategy.Plan, res *Result) {
	if plan.Margin.IsNone() {
		return
	}
	amount := RoundMargin(plan.Margin.Amount)
	if amount <= 0 {
		return
	}
	res.MarginAmount = amount
	if e.dryRun {
		e.log.Info("dry run margin adjustment", zap.String("symbol", plan.Symbol), zap.String("direction", string(plan.Margin.Direction)), zap.Float64("amount", amount))
		return
	}
	if err := e.wait(ctx); err != nil {
		res.MarginErr = err
		return
	}
	if err := e.venue.AdjustMargin(ctx, plan.Symbol, amount, plan.Margin.Direction); err != nil {
		res.MarginErr = err
		e.metrics.MarginFailed.Inc()
		e.log.Warn("margin adjustment failed", zap.String("symbol", plan.Symbol), zap.String("direction", string(plan.Margin.Direction)), zap.Float64("amount", amount), zap.Error(err))
		e.reportError(ctx, "AdjustMargin", err, plan.Symbol, decimal.NewFromFloat(amount).StringFixed(2), string(plan.Margin.Direction))
		return
	}
	res.MarginApplied = true
	e.metrics.MarginAdjusted.Inc()
	text := MarginConfirmation(plan.Symbol, amount, plan.Margin.Direction)
	e.log.Info("margin adjusted", zap.String("symbol", plan.Symbol), zap.String("direction", string(plan.Margin.Direction)), zap.Float64("amount", amount))
	e.notify(ctx, text)
}

func (e *Executor) logSkip(plan strategy.Plan, skip strategy.SkipReason, rules strategy.FilterRules) {
	fields := []zap.Field{
		zap.String("symbol", plan.Symbol),
		zap.String("action", string(plan.Hedge.Kind)),
		zap.Float64("qty", plan.Hedge.Quantity),
	}
	switch skip {
	case strategy.SkipBelowMin:
		e.log.Info("order skipped: quantity below minimum", append(fields, zap.Float64("min_qty", rules.MinQty))...)
	case strategy.SkipAboveMax:
		e.log.Warn("order skipped: quantity above maximum", append(fields, zap.Float64("max_qty", rules.MaxQty))...)
	case strategy.SkipNoRules:
		e.log.Warn("order skipped: no filter rules for symbol", fields...)
	default:
		e.log.Warn("order skipped: invalid quantity", fields...)
	}
}

func (e *Executor) wait(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}

func (e *Executor) notify(ctx context.Context, text string) {
	if e.reporter != nil {
		e.reporter.Notify(ctx, text)
	}
}

func (e *Executor) reportError(ctx context.Context, function string, err error, params ...string) {
	if e.reporter == nil {
		return
	}
	e.reporter.ReportError(ctx, telemetry.ErrorRecord{
		Time:       e.now(),
		Function:   function,
		Parameters: params,
		Message:    err.Error(),
	})
}

// RoundMargin rounds a margin amount to cents.
func RoundMargin(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

func OrderConfirmation(fill strategy.Fill) string {
	return fmt.Sprintf("%s MARKET %s %s @ $%s",
		fill.Symbol,
		fill.Side,
		decimal.NewFromFloat(fill.Quantity).String(),
		decimal.NewFromFloat(fill.AveragePrice).StringFixed(2),
	)
}

func MarginConfirmation(symbol string, amount float64, direction strategy.MarginDirection) string {
	sign := "+"
	if direction == strategy.MarginRemove {
		sign = "-"
	}
	return fmt.Sprintf("Modified %s margin by %s%s", symbol, sign, decimal.NewFromFloat(amount).StringFixed(2))
}
