package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the sync engine.
type Metrics struct {
	TogglesApplied   prometheus.Counter
	WriteFailures    prometheus.Counter
	EchoesSuppressed prometheus.Counter
	ForeignMerges    prometheus.Counter
	Reconnects       prometheus.Counter
	ConnectionState  prometheus.Gauge
	UpdatesBroadcast prometheus.Counter
}

// New creates and registers all metrics. Passing nil registers on the
// default registry; tests pass their own registry to stay isolated.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		TogglesApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "mokjang_toggles_applied_total",
			Help: "Total number of attendance toggles applied optimistically",
		}),
		WriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "mokjang_write_failures_total",
			Help: "Total number of authoritative writes that failed and rolled back",
		}),
		EchoesSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Name: "mokjang_echoes_suppressed_total",
			Help: "Total number of push messages suppressed as the client's own echo",
		}),
		ForeignMerges: factory.NewCounter(prometheus.CounterOpts{
			Name: "mokjang_foreign_merges_total",
			Help: "Total number of push messages merged as other clients' edits",
		}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "mokjang_push_reconnect_attempts_total",
			Help: "Total number of push channel reconnect attempts",
		}),
		ConnectionState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mokjang_push_connection_state",
			Help: "Push channel state: 0 disconnected, 1 connecting, 2 connected",
		}),
		UpdatesBroadcast: factory.NewCounter(prometheus.CounterOpts{
			Name: "mokjang_updates_broadcast_total",
			Help: "Total number of attendance updates fanned out to push subscribers",
		}),
	}
}

func (m *Metrics) IncrementTogglesApplied() {
	m.TogglesApplied.Inc()
}

func (m *Metrics) IncrementWriteFailures() {
	m.WriteFailures.Inc()
}

func (m *Metrics) IncrementEchoesSuppressed() {
	m.EchoesSuppressed.Inc()
}

func (m *Metrics) IncrementForeignMerges() {
	m.ForeignMerges.Inc()
}

func (m *Metrics) IncrementReconnects() {
	m.Reconnects.Inc()
}

func (m *Metrics) SetConnectionState(state int) {
	m.ConnectionState.Set(float64(state))
}

func (m *Metrics) IncrementUpdatesBroadcast() {
	m.UpdatesBroadcast.Inc()
}
