// Package observability collects Prometheus metrics for a report run. The CLI
// is a one-shot process, so metrics are exported through the node_exporter
// textfile collector format instead of an HTTP endpoint.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Metrics holds all Prometheus metrics for a run.
type Metrics struct {
	registry *prometheus.Registry

	RPCBatches      *prometheus.CounterVec
	RPCBatchCalls   prometheus.Counter
	PriceLookups    *prometheus.CounterVec
	VaultTVL        *prometheus.GaugeVec
	LastReportBlock prometheus.Gauge
}

// NewMetrics creates a Metrics instance on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "vaultscope"
	}
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		RPCBatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_batches_total",
			Help:      "Batched eth_call round trips by result",
		}, []string{"result"}),
		RPCBatchCalls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_batch_calls_total",
			Help:      "Contract reads sent inside batches",
		}),
		PriceLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_lookups_total",
			Help:      "Oracle price lookups by route and result",
		}, []string{"route", "result"}),
		VaultTVL: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "vault_tvl",
			Help:      "Total value locked per vault",
		}, []string{"registry", "vault"}),
		LastReportBlock: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_block",
			Help:      "Block height every read of the last report observed",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveBatch implements chain.BatchObserver.
func (m *Metrics) ObserveBatch(size int, err error) {
	m.RPCBatches.WithLabelValues(result(err)).Inc()
	m.RPCBatchCalls.Add(float64(size))
}

// ObservePriceLookup implements prices.LookupObserver.
func (m *Metrics) ObservePriceLookup(route string, err error) {
	m.PriceLookups.WithLabelValues(route, result(err)).Inc()
}

// RecordTVL sets the TVL gauge of a vault.
func (m *Metrics) RecordTVL(registry, vault string, value decimal.Decimal) {
	m.VaultTVL.WithLabelValues(registry, vault).Set(value.InexactFloat64())
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
