package app

import (
	"context"

	"glp-hedge-bot/internal/alerts"
	"glp-hedge-bot/internal/telemetry"

	"go.uber.org/zap"
)

// reporter delivers confirmations and error records on a best-effort basis.
type reporter struct {
	notifier Notifier
	errors   telemetry.ErrorSink
	log      *zap.Logger
}

func (r *reporter) Notify(ctx context.Context, text string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Send(ctx, text); err != nil {
		r.log.Warn("notification failed", zap.Error(err))
	}
}

func (r *reporter) ReportError(ctx context.Context, rec telemetry.ErrorRecord) {
	r.Notify(ctx, alerts.FormatFields(rec.Fields()))
	if r.errors == nil {
		return
	}
	if err := r.errors.EmitError(ctx, rec); err != nil {
		r.log.Warn("error record write failed", zap.String("function", rec.Function), zap.Error(err))
	}
}
