package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics processing counters, labelled by chain and event kind
type Metrics struct {
	EventsTotal      *prometheus.CounterVec
	EventsSkipped    *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	ApplyDuration    *prometheus.HistogramVec
	WritesPerEvent   *prometheus.HistogramVec
	LastAppliedBlock *prometheus.GaugeVec
	EthPriceUSD      *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "dexstats"
	}

	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_applied_total",
			Help:      "Events applied and committed.",
		}, []string{"chain", "kind"}),
		EventsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_skipped_total",
			Help:      "Events dropped without writes (duplicate, out of order, filtered, unresolved decimals).",
		}, []string{"chain", "kind", "reason"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by stage.",
		}, []string{"chain", "stage"}),
		ApplyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "apply_duration_seconds",
			Help:      "Time to apply and commit one event.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"chain", "kind"}),
		WritesPerEvent: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "writes_per_event",
			Help:      "Entity snapshots written by one event.",
			Buckets:   prometheus.LinearBuckets(1, 2, 12),
		}, []string{"kind"}),
		LastAppliedBlock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_applied_block",
			Help:      "Block of the last committed event.",
		}, []string{"chain"}),
		EthPriceUSD: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "native_price_usd",
			Help:      "Native asset USD price from the reference pool.",
		}, []string{"chain"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.EventsTotal,
			m.EventsSkipped,
			m.ErrorsTotal,
			m.ApplyDuration,
			m.WritesPerEvent,
			m.LastAppliedBlock,
			m.EthPriceUSD,
		)
	}
	return m
}

// Handler exposes g, or the default gatherer when g is nil
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
