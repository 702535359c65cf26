package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"glp-hedge-bot/internal/config"
	"glp-hedge-bot/internal/state/sqlite"
	"glp-hedge-bot/internal/telemetry"
)

func TestDryRunConfigIsolatesState(t *testing.T) {
	enabled := true
	cfg := &config.Config{
		State:     config.StateConfig{SQLitePath: "data/glp-hedge-bot.db"},
		Timescale: config.TimescaleConfig{Enabled: true, DSN: "postgres://localhost/db"},
		Telegram:  config.TelegramConfig{Enabled: true},
		Metrics:   config.MetricsConfig{Enabled: &enabled},
	}
	dryRunConfig(cfg)
	if !cfg.Hedge.DryRun {
		t.Fatalf("expected dry run")
	}
	if cfg.State.SQLitePath != ":memory:" {
		t.Fatalf("expected in-memory state, got %q", cfg.State.SQLitePath)
	}
	if cfg.Timescale.Enabled || cfg.Telegram.Enabled || cfg.Metrics.EnabledValue() {
		t.Fatalf("expected side effects disabled, got %+v", cfg)
	}
}

func TestPrintStatsAndErrors(t *testing.T) {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	var out bytes.Buffer
	if err := printStats(ctx, &out, store); err != nil {
		t.Fatalf("print stats: %v", err)
	}
	if !strings.Contains(out.String(), "no telemetry") {
		t.Fatalf("unexpected empty stats output %q", out.String())
	}

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := store.Emit(ctx, telemetry.Record{Time: at, NetWorthUSD: 1205}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := store.EmitError(ctx, telemetry.ErrorRecord{Time: at, Function: "MarketOrder", Parameters: []string{"ETHUSDT"}, Message: "rejected"}); err != nil {
		t.Fatalf("emit error: %v", err)
	}

	out.Reset()
	if err := printStats(ctx, &out, store); err != nil {
		t.Fatalf("print stats: %v", err)
	}
	if !strings.Contains(out.String(), "netWorth: 1205") {
		t.Fatalf("unexpected stats output %q", out.String())
	}

	out.Reset()
	if err := printErrors(ctx, &out, store, 10); err != nil {
		t.Fatalf("print errors: %v", err)
	}
	if !strings.Contains(out.String(), "function: MarketOrder") || !strings.Contains(out.String(), "message: rejected") {
		t.Fatalf("unexpected errors output %q", out.String())
	}
}
