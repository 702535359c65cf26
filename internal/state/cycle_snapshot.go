package state

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const CycleSnapshotKey = "cycle:last"

type TokenSnapshot struct {
	Token           string  `msgpack:"token"`
	Symbol          string  `msgpack:"symbol"`
	TargetShort     float64 `msgpack:"target_short"`
	CurrentShort    float64 `msgpack:"current_short"`
	Leverage        float64 `msgpack:"leverage"`
	Action          string  `msgpack:"action"`
	Quantity        float64 `msgpack:"quantity"`
	MarginDirection string  `msgpack:"margin_direction"`
	MarginAmount    float64 `msgpack:"margin_amount"`
	Skip            string  `msgpack:"skip,omitempty"`
	Error           string  `msgpack:"error,omitempty"`
}

// CycleSnapshot summarizes the last finished cycle for inspection at startup.
type CycleSnapshot struct {
	StartedAt   time.Time       `msgpack:"started_at"`
	CompletedAt time.Time       `msgpack:"completed_at"`
	Aborted     bool            `msgpack:"aborted"`
	TokenErrors int             `msgpack:"token_errors"`
	NetWorthUSD float64         `msgpack:"net_worth_usd"`
	Tokens      []TokenSnapshot `msgpack:"tokens"`
}

func (s CycleSnapshot) Duration() time.Duration {
	if s.CompletedAt.Before(s.StartedAt) {
		return 0
	}
	return s.CompletedAt.Sub(s.StartedAt)
}

func LoadCycleSnapshot(ctx context.Context, store Store) (CycleSnapshot, bool, error) {
	if store == nil {
		return CycleSnapshot{}, false, nil
	}
	raw, ok, err := store.Get(ctx, CycleSnapshotKey)
	if err != nil {
		return CycleSnapshot{}, false, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return CycleSnapshot{}, false, nil
	}
	payload, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return CycleSnapshot{}, false, fmt.Errorf("decode cycle snapshot: %w", err)
	}
	var snapshot CycleSnapshot
	if err := msgpack.NewDecoder(bytes.NewReader(payload)).Decode(&snapshot); err != nil {
		return CycleSnapshot{}, false, fmt.Errorf("decode cycle snapshot: %w", err)
	}
	return snapshot, true, nil
}

func SaveCycleSnapshot(ctx context.Context, store Store, snapshot CycleSnapshot) error {
	if store == nil {
		return nil
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(snapshot); err != nil {
		return fmt.Errorf("encode cycle snapshot: %w", err)
	}
	return store.Set(ctx, CycleSnapshotKey, base64.StdEncoding.EncodeToString(buf.Bytes()))
}
