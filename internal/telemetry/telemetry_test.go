package telemetry

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

type captureSink struct {
	records []Record
	err     error
}

func (c *captureSink) Emit(_ context.Context, rec Record) error {
	c.records = append(c.records, rec)
	return c.err
}

func TestMultiEmitsToAllSinks(t *testing.T) {
	boom := errors.New("disk full")
	first := &captureSink{err: boom}
	second := &captureSink{}
	rec := Record{Time: time.Unix(1700000000, 0), NetWorthUSD: 10}
	err := Multi{first, nil, second}.Emit(context.Background(), rec)
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(first.records) != 1 || len(second.records) != 1 {
		t.Fatalf("expected both sinks to receive the record")
	}
}

func TestErrorRecordFields(t *testing.T) {
	rec := ErrorRecord{
		Time:       time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Function:   "MarketOrder",
		Parameters: []string{"ETHUSDT", "SELL", "60"},
		Message:    "margin is insufficient",
	}
	fields := rec.Fields()
	if fields[1][1] != "MarketOrder" || fields[2][1] != "ETHUSDT | SELL | 60" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if fields[0][1] != "2024-01-02T03:04:05Z" {
		t.Fatalf("unexpected time %q", fields[0][1])
	}
}

func TestRecordFieldsOrder(t *testing.T) {
	fields := Record{NetWorthUSD: 1234.5}.Fields()
	if fields[4][0] != "netWorth" || fields[4][1] != "1234.5" {
		t.Fatalf("unexpected net worth field %v", fields[4])
	}
}

func TestRecordFieldsAreUntagged(t *testing.T) {
	typ := reflect.TypeOf(Record{})
	for i := 0; i < typ.NumField(); i++ {
		if tag := typ.Field(i).Tag; tag != "" {
			t.Fatalf("field %s carries unused tag %q", typ.Field(i).Name, tag)
		}
	}
}
