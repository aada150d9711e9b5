package monitor

import (
	"net/http"
	"time"

	"github.com/lsds/kungfu-gather/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-gather/srcs/go/plan"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type netMonitor interface {
	Egress(n int64, a plan.NetAddr)
	Ingress(n int64, a plan.NetAddr)
	// Discarded records a message that arrived after its receiver gave up.
	Discarded(n int64, a plan.NetAddr)
}

type collectiveMonitor interface {
	// CollectiveDone records one finished collective call, role is root or leaf, result is the failure kind.
	CollectiveDone(op, role, result string, d time.Duration)
}

type Monitor interface {
	http.Handler

	netMonitor
	collectiveMonitor
}

var defaultMonitor Monitor

func init() {
	if config.EnableMonitoring {
		defaultMonitor = newMonitor(prometheus.NewRegistry())
	} else {
		defaultMonitor = &noopMonitor{}
	}
}

func GetMonitor() Monitor {
	return defaultMonitor
}

type noopMonitor struct {
}

func (m *noopMonitor) Egress(n int64, a plan.NetAddr) {}

func (m *noopMonitor) Ingress(n int64, a plan.NetAddr) {}

func (m *noopMonitor) Discarded(n int64, a plan.NetAddr) {}

func (m *noopMonitor) CollectiveDone(op, role, result string, d time.Duration) {}

func (m *noopMonitor) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	http.Error(w, "monitoring is not enabled", http.StatusNotFound)
}

type promMonitor struct {
	handler http.Handler

	egressBytes        *prometheus.CounterVec
	ingressBytes       *prometheus.CounterVec
	discardedMessages  *prometheus.CounterVec
	collectiveTotal    *prometheus.CounterVec
	collectiveDuration *prometheus.HistogramVec
}

func newMonitor(reg *prometheus.Registry) *promMonitor {
	m := &promMonitor{
		handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		egressBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kungfu_egress_total_bytes",
			Help: "Bytes sent to a peer",
		}, []string{"peer"}),
		ingressBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kungfu_ingress_total_bytes",
			Help: "Bytes received from a peer",
		}, []string{"peer"}),
		discardedMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kungfu_discarded_messages_total",
			Help: "Messages from a peer dropped because their receiver timed out",
		}, []string{"peer"}),
		collectiveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kungfu_collective_total",
			Help: "Finished collective calls by operation, role and result",
		}, []string{"op", "role", "result"}),
		collectiveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kungfu_collective_duration_seconds",
			Help:    "Duration of collective calls on this rank",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"op", "role"}),
	}
	reg.MustRegister(m.egressBytes, m.ingressBytes, m.discardedMessages, m.collectiveTotal, m.collectiveDuration)
	return m
}

func (m *promMonitor) Egress(n int64, a plan.NetAddr) {
	m.egressBytes.WithLabelValues(a.String()).Add(float64(n))
}

func (m *promMonitor) Ingress(n int64, a plan.NetAddr) {
	m.ingressBytes.WithLabelValues(a.String()).Add(float64(n))
}

func (m *promMonitor) Discarded(n int64, a plan.NetAddr) {
	m.discardedMessages.WithLabelValues(a.String()).Inc()
}

func (m *promMonitor) CollectiveDone(op, role, result string, d time.Duration) {
	m.collectiveTotal.WithLabelValues(op, role, result).Inc()
	m.collectiveDuration.WithLabelValues(op, role).Observe(d.Seconds())
}

func (m *promMonitor) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	m.handler.ServeHTTP(w, req)
}
