// Package metrics exposes the coordinator state to prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/the-lightning-land/wifid/dispatch"
	"github.com/the-lightning-land/wifid/mode"
	"github.com/the-lightning-land/wifid/radio"
)

const namespace = "wifid"

var modes = []mode.Mode{mode.Off, mode.Net, mode.Ap, mode.Conflicting}

type Metrics struct {
	registry *prometheus.Registry

	mode        *prometheus.GaugeVec
	modeChanges *prometheus.CounterVec
	moduleState prometheus.Gauge
	apState     prometheus.Gauge
	netState    prometheus.Gauge
	scans       prometheus.Counter
	networks    prometheus.Gauge
	clients     prometheus.Gauge
	roster      *prometheus.CounterVec
	requests    *prometheus.CounterVec
}

// New creates the collectors on a registry of their own, together with the
// go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		mode: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "mode",
				Help:      "Current operating mode, 1 for the active mode",
			},
			[]string{"mode"},
		),
		modeChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mode_changes_total",
				Help:      "Total number of operating mode changes",
			},
			[]string{"from", "to"},
		),
		moduleState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "module_state",
			Help:      "Last reported station radio state code",
		}),
		apState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ap_state",
			Help:      "Last reported access point state code",
		}),
		netState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "net_state",
			Help:      "Last reported network connection state code",
		}),
		scans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_completed_total",
			Help:      "Total number of completed scans",
		}),
		networks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scan_networks",
			Help:      "Number of networks found by the last scan",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ap_clients",
			Help:      "Number of clients attached to the hosted access point",
		}),
		roster: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "roster_changes_total",
				Help:      "Total number of client roster changes",
			},
			[]string{"kind"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of coordinator requests by operation and result",
			},
			[]string{"operation", "result"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.mode,
		m.modeChanges,
		m.moduleState,
		m.apState,
		m.netState,
		m.scans,
		m.networks,
		m.clients,
		m.roster,
		m.requests,
	)

	m.SetMode(mode.Off)

	return m
}

func (m *Metrics) SetMode(current mode.Mode) {
	for _, md := range modes {
		value := 0.0
		if md == current {
			value = 1
		}
		m.mode.WithLabelValues(md.String()).Set(value)
	}
}

func (m *Metrics) ObserveModeChange(from, to mode.Mode) {
	m.modeChanges.WithLabelValues(from.String(), to.String()).Inc()
	m.SetMode(to)
}

func (m *Metrics) ObserveModuleState(s radio.ModuleState) {
	m.moduleState.Set(float64(s))
}

func (m *Metrics) ObserveApState(s radio.ApState) {
	m.apState.Set(float64(s))

	if s != radio.ApEnabled {
		m.clients.Set(0)
	}
}

func (m *Metrics) ObserveNetState(s radio.NetState) {
	m.netState.Set(float64(s))
}

func (m *Metrics) ObserveScanResults(results []radio.ScanResult) {
	m.scans.Inc()
	m.networks.Set(float64(len(results)))
}

func (m *Metrics) ObserveRosterChange(change dispatch.RosterChange) {
	m.roster.WithLabelValues(change.Kind.String()).Inc()

	switch change.Kind {
	case dispatch.Join:
		m.clients.Inc()
	case dispatch.Leave:
		m.clients.Dec()
	}
}

func (m *Metrics) SetClients(n int) {
	m.clients.Set(float64(n))
}

// ObserveRequest counts a coordinator request by the class of its error.
func (m *Metrics) ObserveRequest(operation string, err error) {
	m.requests.WithLabelValues(operation, Result(err)).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Result names the class of a request error.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case radio.IsModeConflict(err):
		return "conflict"
	case radio.IsInvalid(err):
		return "invalid"
	case radio.IsUnavailable(err):
		return "unavailable"
	default:
		return "error"
	}
}
