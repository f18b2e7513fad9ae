// Package metrics provides Prometheus metrics collection for vaultkit.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/artpar/vaultkit/core/table"
)

var (
	_ table.Observer      = (*Collector)(nil)
	_ table.SyncObserver  = (*Collector)(nil)
	_ table.CountObserver = (*Collector)(nil)
)

// Collector holds all Prometheus metrics for a vault.
type Collector struct {
	// Table operation metrics
	OpsTotal    *prometheus.CounterVec
	OpDuration  *prometheus.HistogramVec
	RecordCount *prometheus.GaugeVec

	// Sync metrics
	SyncTotal    prometheus.Counter
	SyncErrors   prometheus.Counter
	SyncDuration prometheus.Histogram

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
}

// New creates a collector registered on the default registry.
func New() *Collector {
	return newCollector(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a collector registered on the given registry.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return newCollector(promauto.With(reg))
}

func newCollector(factory promauto.Factory) *Collector {
	return &Collector{
		OpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vaultkit",
				Name:      "table_ops_total",
				Help:      "Total table operations by plugin, table, op and status",
			},
			[]string{"plugin", "table", "op", "status"},
		),
		OpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "vaultkit",
				Name:      "table_op_duration_seconds",
				Help:      "Table operation duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"plugin", "table", "op"},
		),
		RecordCount: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "vaultkit",
				Name:      "records",
				Help:      "Record count by plugin and table, set on stats collection",
			},
			[]string{"plugin", "table"},
		),

		SyncTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "vaultkit",
				Name:      "syncs_total",
				Help:      "Total mirror sync attempts",
			},
		),
		SyncErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "vaultkit",
				Name:      "sync_errors_total",
				Help:      "Total failed mirror syncs",
			},
		),
		SyncDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "vaultkit",
				Name:      "sync_duration_seconds",
				Help:      "Mirror sync duration in seconds",
				Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 60},
			},
		),

		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "vaultkit",
				Name:      "config_reloads_total",
				Help:      "Total successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "vaultkit",
				Name:      "config_reload_errors_total",
				Help:      "Total failed config reloads",
			},
		),
	}
}

// ObserveOp records one table operation. It satisfies the table engine's
// observer contract.
func (c *Collector) ObserveOp(plugin, table, op string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.OpsTotal.WithLabelValues(plugin, table, op, status).Inc()
	c.OpDuration.WithLabelValues(plugin, table, op).Observe(d.Seconds())
}

// ObserveSync records one mirror sync attempt.
func (c *Collector) ObserveSync(d time.Duration, err error) {
	c.SyncTotal.Inc()
	if err != nil {
		c.SyncErrors.Inc()
	}
	c.SyncDuration.Observe(d.Seconds())
}

// SetRecordCount publishes a table's current record count.
func (c *Collector) SetRecordCount(plugin, table string, n int) {
	c.RecordCount.WithLabelValues(plugin, table).Set(float64(n))
}

// ObserveReload records one config reload attempt.
func (c *Collector) ObserveReload(err error) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
}
