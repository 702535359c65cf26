package timescale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"glp-hedge-bot/internal/config"
	"glp-hedge-bot/internal/telemetry"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// PlanRow is one token's hedge decision and its execution outcome.
type PlanRow struct {
	Time         time.Time
	Token        string
	Symbol       string
	ShareRatio   float64
	NetSize      float64
	TargetShort  float64
	CurrentShort float64
	Leverage     float64
	Action       string
	Quantity     float64
	MarginAction string
	MarginAmount float64
	Skip         string
	Filled       bool
	AveragePrice float64
	DryRun       bool
	Error        string
}

// Writer mirrors telemetry into TimescaleDB from a background goroutine.
// Enqueue calls never block; rows are dropped when the queue is full.
type Writer struct {
	db        *sql.DB
	log       *zap.Logger
	schema    string
	records   chan telemetry.Record
	plans     chan PlanRow
	started   atomic.Bool
	dropRec   atomic.Uint64
	dropPlans atomic.Uint64
}

func New(cfg config.TimescaleConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("timescale dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	w := newWriter(db, schema, cfg.QueueSize, log)
	if err := w.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func newWriter(db *sql.DB, schema string, queueSize int, log *zap.Logger) *Writer {
	if queueSize <= 0 {
		queueSize = 256
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{
		db:      db,
		log:     log,
		schema:  schema,
		records: make(chan telemetry.Record, queueSize),
		plans:   make(chan PlanRow, queueSize),
	}
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

// Emit queues a telemetry record. It satisfies telemetry.Sink.
func (w *Writer) Emit(_ context.Context, rec telemetry.Record) error {
	if w == nil {
		return nil
	}
	select {
	case w.records <- rec:
	default:
		if w.dropRec.Add(1) == 1 {
			w.log.Warn("timescale record queue full")
		}
	}
	return nil
}

func (w *Writer) EnqueuePlan(row PlanRow) {
	if w == nil {
		return
	}
	select {
	case w.plans <- row:
	default:
		if w.dropPlans.Add(1) == 1 {
			w.log.Warn("timescale plan queue full")
		}
	}
}

// Dropped reports how many records and plan rows were discarded.
func (w *Writer) Dropped() (records, plans uint64) {
	if w == nil {
		return 0, 0
	}
	return w.dropRec.Load(), w.dropPlans.Load()
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-w.records:
			w.writeRecord(ctx, rec)
		case row := <-w.plans:
			w.writePlan(ctx, row)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("timescale db not initialized")
	}
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		share_price DOUBLE PRECISION NOT NULL,
		share_balance DOUBLE PRECISION NOT NULL,
		share_value_usd DOUBLE PRECISION NOT NULL,
		net_worth_usd DOUBLE PRECISION NOT NULL,
		reward_amount DOUBLE PRECISION NOT NULL,
		reward_value_usd DOUBLE PRECISION NOT NULL,
		secondary_reward_amount DOUBLE PRECISION NOT NULL
	)`, w.table("glp_timeseries"))); err != nil {
		return err
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		token TEXT NOT NULL,
		symbol TEXT NOT NULL,
		share_ratio DOUBLE PRECISION NOT NULL,
		net_size DOUBLE PRECISION NOT NULL,
		target_short DOUBLE PRECISION NOT NULL,
		current_short DOUBLE PRECISION NOT NULL,
		leverage DOUBLE PRECISION NOT NULL,
		action TEXT NOT NULL,
		quantity DOUBLE PRECISION NOT NULL,
		margin_action TEXT NOT NULL,
		margin_amount DOUBLE PRECISION NOT NULL,
		skip TEXT NOT NULL,
		filled BOOLEAN NOT NULL,
		avg_price DOUBLE PRECISION NOT NULL,
		dry_run BOOLEAN NOT NULL,
		error TEXT NOT NULL
	)`, w.table("hedge_plans"))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		w.log.Warn("timescale extension ensure failed", zap.Error(err))
		return nil
	}
	for _, name := range []string{"glp_timeseries", "hedge_plans"} {
		if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table(name))); err != nil {
			w.log.Warn("timescale hypertable create failed", zap.String("table", name), zap.Error(err))
		}
	}
	return nil
}

func (w *Writer) writeRecord(ctx context.Context, rec telemetry.Record) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, share_price, share_balance, share_value_usd, net_worth_usd,
		reward_amount, reward_value_usd, secondary_reward_amount
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`, w.table("glp_timeseries"))
	if _, err := w.db.ExecContext(ctx, query,
		rec.Time,
		rec.SharePrice,
		rec.ShareBalance,
		rec.ShareValueUSD,
		rec.NetWorthUSD,
		rec.RewardAmount,
		rec.RewardValueUSD,
		rec.SecondaryRewardAmount,
	); err != nil {
		w.log.Warn("timescale record insert failed", zap.Error(err))
	}
}

func (w *Writer) writePlan(ctx context.Context, row PlanRow) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, token, symbol, share_ratio, net_size, target_short, current_short, leverage,
		action, quantity, margin_action, margin_amount, skip, filled, avg_price, dry_run, error
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
	)`, w.table("hedge_plans"))
	if _, err := w.db.ExecContext(ctx, query,
		row.Time,
		row.Token,
		row.Symbol,
		row.ShareRatio,
		row.NetSize,
		row.TargetShort,
		row.CurrentShort,
		row.Leverage,
		row.Action,
		row.Quantity,
		row.MarginAction,
		row.MarginAmount,
		row.Skip,
		row.Filled,
		row.AveragePrice,
		row.DryRun,
		row.Error,
	); err != nil {
		w.log.Warn("timescale plan insert failed", zap.String("token", row.Token), zap.Error(err))
	}
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
