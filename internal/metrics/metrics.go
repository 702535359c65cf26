package metrics

type Counter interface {
	Inc()
}

type Gauge interface {
	Set(float64)
}

type Metrics struct {
	CyclesCompleted Counter
	CyclesAborted   Counter
	TokenErrors     Counter
	OrdersPlaced    Counter
	OrdersFailed    Counter
	MarginAdjusted  Counter
	MarginFailed    Counter
	QuantitySkipped Counter
	NetWorthUSD     Gauge
	ShareValueUSD   Gauge
	DroppedRecords  Gauge
	DroppedPlans    Gauge
}

type noop struct{}

func (noop) Inc() {}

func (noop) Set(float64) {}

func NewNoop() *Metrics {
	n := noop{}
	return &Metrics{
		CyclesCompleted: n,
		CyclesAborted:   n,
		TokenErrors:     n,
		OrdersPlaced:    n,
		OrdersFailed:    n,
		MarginAdjusted:  n,
		MarginFailed:    n,
		QuantitySkipped: n,
		NetWorthUSD:     n,
		ShareValueUSD:   n,
		DroppedRecords:  n,
		DroppedPlans:    n,
	}
}
