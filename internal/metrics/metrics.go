// Package metrics holds the run's prometheus counters. Each run owns its own
// registry and writes it out once, in the node-exporter textfile format.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ttd_writer"

// Metrics groups the counters updated during a run. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	APICalls        *prometheus.CounterVec
	TokenRefreshes  prometheus.Counter
	RecordsStaged   *prometheus.CounterVec
	EntitiesWritten *prometheus.CounterVec
	RowsFailed      *prometheus.CounterVec
}

// New creates the counters and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		APICalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_calls_total",
			Help:      "API exchanges by method and HTTP status.",
		}, []string{"method", "status"}),
		TokenRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Authentication exchanges performed.",
		}),
		RecordsStaged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_staged_total",
			Help:      "Validated records written to the staging store.",
		}, []string{"entity"}),
		EntitiesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_written_total",
			Help:      "Entities created, updated or cloned through the API.",
		}, []string{"entity", "operation"}),
		RowsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_failed_total",
			Help:      "Rows skipped under continue_on_error.",
		}, []string{"flow"}),
	}
	m.registry.MustRegister(m.APICalls, m.TokenRefreshes, m.RecordsStaged, m.EntitiesWritten, m.RowsFailed)
	return m
}

// ObserveCall counts one API exchange. status 0 means a transport failure.
func (m *Metrics) ObserveCall(method string, status int) {
	if m == nil {
		return
	}
	m.APICalls.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *Metrics) TokenRefreshed() {
	if m == nil {
		return
	}
	m.TokenRefreshes.Inc()
}

func (m *Metrics) Staged(entity string, n int) {
	if m == nil {
		return
	}
	m.RecordsStaged.WithLabelValues(entity).Add(float64(n))
}

func (m *Metrics) Written(entity, operation string) {
	if m == nil {
		return
	}
	m.EntitiesWritten.WithLabelValues(entity, operation).Inc()
}

func (m *Metrics) Failed(flow string) {
	if m == nil {
		return
	}
	m.RowsFailed.WithLabelValues(flow).Inc()
}

// Registry exposes the underlying registry for inspection.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes every counter to path. A nil receiver or an empty
// path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
