// Package metrics exposes authentication counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "estate"

const (
	ResultSuccess = "success"
	ResultFailure = "failure"

	RefreshTransparent = "transparent"
	RefreshExplicit    = "explicit"
)

// Metrics owns its registry so tests can build independent instances. All
// methods are safe on a nil receiver.
type Metrics struct {
	registry       *prometheus.Registry
	signIns        *prometheus.CounterVec
	refreshes      *prometheus.CounterVec
	logouts        *prometheus.CounterVec
	gateRejections *prometheus.CounterVec
	signups        *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "signins_total",
			Help:      "Sign-in attempts by result.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "refreshes_total",
			Help:      "Access token refreshes by kind and result.",
		}, []string{"kind", "result"}),
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logouts_total",
			Help:      "Successful logouts by mode.",
		}, []string{"mode"}),
		gateRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "gate_rejections_total",
			Help:      "Requests rejected by the authentication gate, by error code.",
		}, []string{"code"}),
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "signups_total",
			Help:      "Signup and verification steps by stage and result.",
		}, []string{"stage", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.signIns,
		m.refreshes,
		m.logouts,
		m.gateRejections,
		m.signups,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SignIn(result string) {
	if m == nil {
		return
	}
	m.signIns.WithLabelValues(result).Inc()
}

func (m *Metrics) Refresh(kind string, result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Logout(mode string) {
	if m == nil {
		return
	}
	m.logouts.WithLabelValues(mode).Inc()
}

func (m *Metrics) GateRejected(code string) {
	if m == nil {
		return
	}
	m.gateRejections.WithLabelValues(code).Inc()
}

func (m *Metrics) Signup(stage string, result string) {
	if m == nil {
		return
	}
	m.signups.WithLabelValues(stage, result).Inc()
}

// Result maps an operation outcome to a result label.
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
