// Package metrics exposes session state to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for one session. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	TicksTotal      prometheus.Counter
	TickDuration    prometheus.Histogram
	PricesHeld      prometheus.Counter
	OpsTotal        *prometheus.CounterVec // labels: op, result
	Triggers        *prometheus.CounterVec // labels: kind
	RiskLookupFails *prometheus.CounterVec // labels: kind
	JournalErrors   prometheus.Counter
	Subscribers     prometheus.Gauge
	SessionRunning  prometheus.Gauge
	Equity          prometheus.Gauge
	Balance         prometheus.Gauge
	Margin          prometheus.Gauge
	MarginLevel     prometheus.Gauge
	OpenPositions   prometheus.Gauge
	ClosedPositions prometheus.Gauge
	PortfolioHeat   prometheus.Gauge
	LedgerVersion   prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertrade_ticks_total",
			Help: "Price feed ticks applied to the ledger",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "papertrade_tick_duration_seconds",
			Help:    "Time to generate prices and mark every open position",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		PricesHeld: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertrade_prices_held_total",
			Help: "Instruments skipped on a tick because no price was available",
		}),
		OpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrade_operations_total",
			Help: "Session commands by operation and result",
		}, []string{"op", "result"}),
		Triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrade_triggers_total",
			Help: "Stop-loss and take-profit levels crossed",
		}, []string{"kind"}),
		RiskLookupFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrade_risk_lookup_failures_total",
			Help: "Volatility or correlation lookups that fell back",
		}, []string{"kind"}),
		JournalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertrade_journal_errors_total",
			Help: "Journal writes that failed",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papertrade_subscribers",
			Help: "Active view subscribers",
		}),
		SessionRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papertrade_session_running",
			Help: "1 while the price feed is running",
		}),
		Equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papertrade_account_equity",
			Help: "Balance plus P&L of all positions",
		}),
		Balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papertrade_account_balance",
			Help: "Starting balance",
		}),
		Margin: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papertrade_account_margin",
			Help: "Entry notional of open positions",
		}),
		MarginLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papertrade_account_margin_level_percent",
			Help: "Equity as a percentage of margin, 0 without margin",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papertrade_open_positions",
			Help: "Open positions",
		}),
		ClosedPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papertrade_closed_positions",
			Help: "Closed positions",
		}),
		PortfolioHeat: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papertrade_portfolio_heat",
			Help: "Composite 0-100 portfolio risk",
		}),
		LedgerVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papertrade_ledger_version",
			Help: "Ledger mutation counter",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.TicksTotal,
		m.TickDuration,
		m.PricesHeld,
		m.OpsTotal,
		m.Triggers,
		m.RiskLookupFails,
		m.JournalErrors,
		m.Subscribers,
		m.SessionRunning,
		m.Equity,
		m.Balance,
		m.Margin,
		m.MarginLevel,
		m.OpenPositions,
		m.ClosedPositions,
		m.PortfolioHeat,
		m.LedgerVersion,
	)
	return m
}

// Handler serves the registry this Metrics was registered with.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTick(d time.Duration, held int) {
	if m == nil {
		return
	}
	m.TicksTotal.Inc()
	m.TickDuration.Observe(d.Seconds())
	m.PricesHeld.Add(float64(held))
}

// ObserveOp counts a command; err == nil is "ok".
func (m *Metrics) ObserveOp(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.OpsTotal.WithLabelValues(op, result).Inc()
}

func (m *Metrics) ObserveTrigger(kind string) {
	if m == nil {
		return
	}
	m.Triggers.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveRiskLookupFailure(kind string) {
	if m == nil {
		return
	}
	m.RiskLookupFails.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveJournalError() {
	if m == nil {
		return
	}
	m.JournalErrors.Inc()
}

func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.Subscribers.Set(float64(n))
}

func (m *Metrics) SetRunning(running bool) {
	if m == nil {
		return
	}
	v := 0.0
	if running {
		v = 1
	}
	m.SessionRunning.Set(v)
}

// State is the subset of a dashboard view exported as gauges.
type State struct {
	Version       uint64
	Balance       float64
	Equity        float64
	Margin        float64
	MarginLevel   float64
	Open          int
	Closed        int
	PortfolioHeat float64
}

func (m *Metrics) SetState(s State) {
	if m == nil {
		return
	}
	m.LedgerVersion.Set(float64(s.Version))
	m.Balance.Set(s.Balance)
	m.Equity.Set(s.Equity)
	m.Margin.Set(s.Margin)
	m.MarginLevel.Set(s.MarginLevel)
	m.OpenPositions.Set(float64(s.Open))
	m.ClosedPositions.Set(float64(s.Closed))
	m.PortfolioHeat.Set(s.PortfolioHeat)
}
