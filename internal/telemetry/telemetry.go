package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Record is one append-only time-series row, written after a cycle in which
// every token was read successfully.
type Record struct {
	Time                  time.Time
	SharePrice            float64
	ShareBalance          float64
	ShareValueUSD         float64
	NetWorthUSD           float64
	RewardAmount          float64
	RewardValueUSD        float64
	SecondaryRewardAmount float64
}

// Fields renders the record as ordered key/value pairs for notifications.
func (r Record) Fields() [][2]string {
	return [][2]string{
		{"time", r.Time.UTC().Format(time.RFC3339)},
		{"sharePrice", formatFloat(r.SharePrice)},
		{"shareBalance", formatFloat(r.ShareBalance)},
		{"shareValue", formatFloat(r.ShareValueUSD)},
		{"netWorth", formatFloat(r.NetWorthUSD)},
		{"nativeReward", formatFloat(r.RewardAmount)},
		{"nativeRewardUsd", formatFloat(r.RewardValueUSD)},
		{"secondaryReward", formatFloat(r.SecondaryRewardAmount)},
	}
}

// ErrorRecord describes one failed collaborator call.
type ErrorRecord struct {
	Time       time.Time
	Function   string
	Parameters []string
	Message    string
}

func (e ErrorRecord) Fields() [][2]string {
	return [][2]string{
		{"time", e.Time.UTC().Format(time.RFC3339)},
		{"function", e.Function},
		{"parameters", strings.Join(e.Parameters, " | ")},
		{"message", e.Message},
	}
}

type Sink interface {
	Emit(ctx context.Context, rec Record) error
}

type ErrorSink interface {
	EmitError(ctx context.Context, rec ErrorRecord) error
}

// Multi fans a record out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, rec Record) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Emit(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.6g", v)
}
