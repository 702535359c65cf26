package sqlite

import (
	"context"
	"testing"
	"time"

	"glp-hedge-bot/internal/telemetry"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "key", "value"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	val, ok, err := store.Get(ctx, "key")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !ok || val != "value" {
		t.Fatalf("unexpected value: %v (ok=%v)", val, ok)
	}
	if err := store.Delete(ctx, "key"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	_, ok, err = store.Get(ctx, "key")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ok {
		t.Fatalf("expected key to be deleted")
	}
}

func TestStoreTimeSeries(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, ok, err := store.Latest(ctx); err != nil || ok {
		t.Fatalf("expected empty series, ok=%v err=%v", ok, err)
	}
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, worth := range []float64{1000, 1010, 1005} {
		rec := telemetry.Record{
			Time:         base.Add(time.Duration(i) * time.Minute),
			SharePrice:   1.2,
			ShareBalance: 800,
			NetWorthUSD:  worth,
		}
		if err := store.Emit(ctx, rec); err != nil {
			t.Fatalf("emit failed: %v", err)
		}
	}
	latest, ok, err := store.Latest(ctx)
	if err != nil || !ok {
		t.Fatalf("latest failed: ok=%v err=%v", ok, err)
	}
	if latest.NetWorthUSD != 1005 || !latest.Time.Equal(base.Add(2*time.Minute)) {
		t.Fatalf("unexpected latest record %+v", latest)
	}
	records, err := store.Records(ctx, 2)
	if err != nil {
		t.Fatalf("records failed: %v", err)
	}
	if len(records) != 2 || records[1].NetWorthUSD != 1010 {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestStoreErrors(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	rec := telemetry.ErrorRecord{
		Function:   "Position",
		Parameters: []string{"ETHUSDT", "ISOLATED"},
		Message:    "position not found",
	}
	if err := store.EmitError(ctx, rec); err != nil {
		t.Fatalf("emit error failed: %v", err)
	}
	got, err := store.Errors(ctx, 10)
	if err != nil {
		t.Fatalf("errors failed: %v", err)
	}
	if len(got) != 1 || got[0].Function != "Position" || len(got[0].Parameters) != 2 || got[0].Time.IsZero() {
		t.Fatalf("unexpected error rows %+v", got)
	}
}
