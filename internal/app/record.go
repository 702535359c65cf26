package app

import (
	"context"

	persist "glp-hedge-bot/internal/state"
	"glp-hedge-bot/internal/strategy"
	"glp-hedge-bot/internal/timescale"

	"go.uber.org/zap"
)

// recordCycle mirrors the cycle's plans to timescale and persists the
// last-cycle snapshot.
func (a *App) recordCycle(ctx context.Context, report CycleReport) {
	snapshot := cycleSnapshot(report)
	if a.timescale != nil {
		for _, tr := range report.Tokens {
			a.timescale.EnqueuePlan(planRow(report, tr))
		}
		records, plans := a.timescale.Dropped()
		a.metrics.DroppedRecords.Set(float64(records))
		a.metrics.DroppedPlans.Set(float64(plans))
	}
	if err := persist.SaveCycleSnapshot(ctx, a.store, snapshot); err != nil {
		a.log.Warn("cycle snapshot save failed", zap.Error(err))
	}
}

func cycleSnapshot(report CycleReport) persist.CycleSnapshot {
	snapshot := persist.CycleSnapshot{
		StartedAt:   report.StartedAt,
		CompletedAt: report.CompletedAt,
		Aborted:     report.Aborted,
		TokenErrors: report.TokenErrors,
		Tokens:      make([]persist.TokenSnapshot, 0, len(report.Tokens)),
	}
	if report.Summary != nil {
		snapshot.NetWorthUSD = report.Summary.NetWorthUSD
	}
	for _, tr := range report.Tokens {
		ts := persist.TokenSnapshot{
			Token:           tr.Token,
			Symbol:          tr.Symbol,
			TargetShort:     tr.Plan.TargetShortSize,
			CurrentShort:    tr.Plan.CurrentShortSize,
			Leverage:        tr.Plan.Leverage,
			Action:          string(tr.Plan.Hedge.Kind),
			Quantity:        tr.Plan.Hedge.Quantity,
			MarginDirection: string(tr.Plan.Margin.Direction),
		}
		if tr.Err != nil {
			ts.Error = tr.Err.Error()
		}
		if res := tr.Result; res != nil {
			ts.MarginAmount = res.MarginAmount
			ts.Skip = string(res.Skip)
			if res.Quantity > 0 {
				ts.Quantity = res.Quantity
			}
			if res.OrderErr != nil {
				ts.Error = res.OrderErr.Error()
			} else if res.MarginErr != nil {
				ts.Error = res.MarginErr.Error()
			}
		}
		snapshot.Tokens = append(snapshot.Tokens, ts)
	}
	return snapshot
}

func planRow(report CycleReport, tr TokenReport) timescale.PlanRow {
	row := timescale.PlanRow{
		Time:         report.CompletedAt,
		Token:        tr.Token,
		Symbol:       tr.Symbol,
		ShareRatio:   tr.Plan.ShareRatio,
		NetSize:      tr.Plan.NetSize,
		TargetShort:  tr.Plan.TargetShortSize,
		CurrentShort: tr.Plan.CurrentShortSize,
		Leverage:     tr.Plan.Leverage,
		Action:       string(tr.Plan.Hedge.Kind),
		Quantity:     tr.Plan.Hedge.Quantity,
		MarginAction: string(tr.Plan.Margin.Direction),
	}
	if row.Action == "" {
		row.Action = string(strategy.ActionNone)
	}
	if row.MarginAction == "" {
		row.MarginAction = string(strategy.MarginNone)
	}
	if tr.Err != nil {
		row.Error = tr.Err.Error()
	}
	if res := tr.Result; res != nil {
		row.MarginAmount = res.MarginAmount
		row.Skip = string(res.Skip)
		row.DryRun = res.DryRun
		if res.Fill != nil {
			row.Filled = true
			row.Quantity = res.Fill.Quantity
			row.AveragePrice = res.Fill.AveragePrice
		}
		if res.OrderErr != nil {
			row.Error = res.OrderErr.Error()
		} else if res.MarginErr != nil {
			row.Error = res.MarginErr.Error()
		}
	}
	return row
}
