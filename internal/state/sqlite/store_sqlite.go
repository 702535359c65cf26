package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"glp-hedge-bot/internal/telemetry"

	_ "modernc.org/sqlite"
)

// Store keeps the kv state, the telemetry time series and the error log in a
// single sqlite file.
type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS timeseries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		share_price REAL NOT NULL,
		share_balance REAL NOT NULL,
		share_value_usd REAL NOT NULL,
		net_worth_usd REAL NOT NULL,
		reward_amount REAL NOT NULL,
		reward_value_usd REAL NOT NULL,
		secondary_reward_amount REAL NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS timeseries_ts_idx ON timeseries (ts)`,
	`CREATE TABLE IF NOT EXISTS errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		function TEXT NOT NULL,
		parameters TEXT NOT NULL,
		message TEXT NOT NULL
	)`,
}

func initSchema(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

// Emit appends one telemetry row.
func (s *Store) Emit(ctx context.Context, rec telemetry.Record) error {
	if rec.Time.IsZero() {
		rec.Time = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO timeseries
		(ts, share_price, share_balance, share_value_usd, net_worth_usd, reward_amount, reward_value_usd, secondary_reward_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Time.UnixMilli(), rec.SharePrice, rec.ShareBalance, rec.ShareValueUSD,
		rec.NetWorthUSD, rec.RewardAmount, rec.RewardValueUSD, rec.SecondaryRewardAmount)
	return err
}

func (s *Store) EmitError(ctx context.Context, rec telemetry.ErrorRecord) error {
	if rec.Time.IsZero() {
		rec.Time = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO errors (ts, function, parameters, message) VALUES (?, ?, ?, ?)`,
		rec.Time.UnixMilli(), rec.Function, strings.Join(rec.Parameters, "\n"), rec.Message)
	return err
}

// Latest returns the most recent telemetry row, if any.
func (s *Store) Latest(ctx context.Context) (telemetry.Record, bool, error) {
	records, err := s.Records(ctx, 1)
	if err != nil {
		return telemetry.Record{}, false, err
	}
	if len(records) == 0 {
		return telemetry.Record{}, false, nil
	}
	return records[0], true, nil
}

// Records returns up to limit telemetry rows, newest first.
func (s *Store) Records(ctx context.Context, limit int) ([]telemetry.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT ts, share_price, share_balance, share_value_usd, net_worth_usd,
		reward_amount, reward_value_usd, secondary_reward_amount
		FROM timeseries ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []telemetry.Record
	for rows.Next() {
		var (
			ts  int64
			rec telemetry.Record
		)
		if err := rows.Scan(&ts, &rec.SharePrice, &rec.ShareBalance, &rec.ShareValueUSD, &rec.NetWorthUSD,
			&rec.RewardAmount, &rec.RewardValueUSD, &rec.SecondaryRewardAmount); err != nil {
			return nil, err
		}
		rec.Time = time.UnixMilli(ts).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Errors returns up to limit error rows, newest first.
func (s *Store) Errors(ctx context.Context, limit int) ([]telemetry.ErrorRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT ts, function, parameters, message FROM errors ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []telemetry.ErrorRecord
	for rows.Next() {
		var (
			ts     int64
			params string
			rec    telemetry.ErrorRecord
		)
		if err := rows.Scan(&ts, &rec.Function, &params, &rec.Message); err != nil {
			return nil, err
		}
		rec.Time = time.UnixMilli(ts).UTC()
		if params != "" {
			rec.Parameters = strings.Split(params, "\n")
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
