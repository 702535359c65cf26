package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "glp_hedge_bot"

type Prometheus struct {
	Metrics *Metrics

	registry        *prometheus.Registry
	cyclesCompleted prometheus.Counter
	cyclesAborted   prometheus.Counter
	tokenErrors     prometheus.Counter
	ordersPlaced    prometheus.Counter
	ordersFailed    prometheus.Counter
	marginAdjusted  prometheus.Counter
	marginFailed    prometheus.Counter
	quantitySkipped prometheus.Counter
	netWorth        prometheus.Gauge
	shareValue      prometheus.Gauge
	droppedRecords  prometheus.Gauge
	droppedPlans    prometheus.Gauge
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      name,
		Help:      help,
	})
}

func newGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      name,
		Help:      help,
	})
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry:        prometheus.NewRegistry(),
		cyclesCompleted: newCounter("cycles_completed_total", "Total number of completed hedge cycles."),
		cyclesAborted:   newCounter("cycles_aborted_total", "Total number of cycles aborted on aggregate read failures."),
		tokenErrors:     newCounter("token_errors_total", "Total number of per-token read failures."),
		ordersPlaced:    newCounter("orders_placed_total", "Total number of market orders placed."),
		ordersFailed:    newCounter("orders_failed_total", "Total number of market order failures."),
		marginAdjusted:  newCounter("margin_adjusted_total", "Total number of isolated margin adjustments."),
		marginFailed:    newCounter("margin_failed_total", "Total number of isolated margin adjustment failures."),
		quantitySkipped: newCounter("quantity_skipped_total", "Total number of orders skipped by the quantity sanitizer."),
		netWorth:        newGauge("net_worth_usd", "Net worth at the last successful cycle."),
		shareValue:      newGauge("share_value_usd", "Pool share value at the last successful cycle."),
		droppedRecords:  newGauge("timescale_dropped_records", "Telemetry records dropped by the timescale writer."),
		droppedPlans:    newGauge("timescale_dropped_plans", "Hedge plan rows dropped by the timescale writer."),
	}
	p.registry.MustRegister(
		p.cyclesCompleted, p.cyclesAborted, p.tokenErrors,
		p.ordersPlaced, p.ordersFailed, p.marginAdjusted, p.marginFailed,
		p.quantitySkipped, p.netWorth, p.shareValue,
		p.droppedRecords, p.droppedPlans,
	)
	p.Metrics = &Metrics{
		CyclesCompleted: p.cyclesCompleted,
		CyclesAborted:   p.cyclesAborted,
		TokenErrors:     p.tokenErrors,
		OrdersPlaced:    p.ordersPlaced,
		OrdersFailed:    p.ordersFailed,
		MarginAdjusted:  p.marginAdjusted,
		MarginFailed:    p.marginFailed,
		QuantitySkipped: p.quantitySkipped,
		NetWorthUSD:     p.netWorth,
		ShareValueUSD:   p.shareValue,
		DroppedRecords:  p.droppedRecords,
		DroppedPlans:    p.droppedPlans,
	}
	return p
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
