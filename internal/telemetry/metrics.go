package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "localgroup"

// Drop reasons.
const (
	ReasonDecode         = "decode"
	ReasonUnknownElement = "unknown_element"
	ReasonStale          = "stale"
)

// Agreement outcomes.
const (
	OutcomeSeeded    = "seeded"
	OutcomeRequested = "requested"
	OutcomeCurrent   = "current"
)

// Metrics is the set of collectors for one node.
type Metrics struct {
	Received    *prometheus.CounterVec
	Sent        *prometheus.CounterVec
	Dropped     *prometheus.CounterVec
	SendErrors  *prometheus.CounterVec
	Agreements  *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Peers       prometheus.Gauge
	Nearby      prometheus.Gauge
	Pruned      prometheus.Counter
}

// New creates the collectors and registers them on reg. A nil reg gets a
// private registry, which is what tests use.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		Received: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_received_total",
				Help:      "Decoded datagrams by message kind.",
			},
			[]string{"kind"},
		),
		Sent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_sent_total",
				Help:      "Datagrams handed to the transport by message kind.",
			},
			[]string{"kind"},
		),
		Dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dropped_messages_total",
				Help:      "Inbound datagrams dropped, by reason.",
			},
			[]string{"reason"},
		),
		SendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "send_errors_total",
				Help:      "Transport send failures by message kind.",
			},
			[]string{"kind"},
		),
		Agreements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agreements_total",
				Help:      "Agreement attempts by outcome.",
			},
			[]string{"outcome"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "element_transitions_total",
				Help:      "Element state transitions by cause.",
			},
			[]string{"cause"},
		),
		Peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "local_group_size",
			Help:      "Peers currently in the membership table.",
		}),
		Nearby: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nearby_elements",
			Help:      "Elements currently within proximity radius.",
		}),
		Pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_peers_total",
			Help:      "Peers removed after missing the heartbeat timeout.",
		}),
	}

	reg.MustRegister(m.Received, m.Sent, m.Dropped, m.SendErrors, m.Agreements,
		m.Transitions, m.Peers, m.Nearby, m.Pruned)
	return m
}

// ForNode returns a registerer that labels every metric with the node ID.
func ForNode(reg prometheus.Registerer, node uint32) prometheus.Registerer {
	return prometheus.WrapRegistererWith(prometheus.Labels{"node": strconv.FormatUint(uint64(node), 10)}, reg)
}

// RegisterProcess adds build info and uptime collectors to reg.
func RegisterProcess(reg prometheus.Registerer, version string) {
	start := time.Now()
	build := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build info (constant 1, labeled by version).",
		},
		[]string{"version"},
	)
	build.WithLabelValues(version).Set(1)
	uptime := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds.",
		},
		func() float64 { return time.Since(start).Seconds() },
	)
	reg.MustRegister(build, uptime)
}

// Handler exposes /metrics for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
