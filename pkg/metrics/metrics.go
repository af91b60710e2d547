// Package metrics exposes the engine's runtime counters as Prometheus
// collectors: per-worker message traffic, global inbox size, idle/
// throttle state, and superstep progress (§4.4, §4.6).
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vertexflow/sigcollect/pkg/graph"
)

// DefaultRegistry is the registry used by New when none is given.
var DefaultRegistry = prometheus.NewRegistry()

// DefaultRegisterer namespaces every metric under the "sigcollect"
// service label, the way the teacher namespaces its own HTTP/EventBus
// metrics under "service".
var DefaultRegisterer = prometheus.WrapRegistererWith(prometheus.Labels{"service": "sigcollect"}, DefaultRegistry)

// Metrics holds every Prometheus collector the engine publishes.
type Metrics struct {
	WorkerMessagesSent     *prometheus.CounterVec
	WorkerMessagesReceived *prometheus.CounterVec
	WorkerVerticesAdded    *prometheus.CounterVec
	WorkerVerticesRemoved  *prometheus.CounterVec
	WorkerEdgesAdded       *prometheus.CounterVec
	WorkerEdgesRemoved     *prometheus.CounterVec
	WorkerIdle             *prometheus.GaugeVec
	WorkerThrottled        *prometheus.GaugeVec

	GlobalInboxSize    prometheus.Gauge
	GlobalIdleWorkers  prometheus.Gauge
	GlobalSuperstep    prometheus.Gauge
	NodesRegistered    prometheus.Gauge

	customMu       sync.RWMutex
	customCounters map[string]*prometheus.CounterVec
	customGauges   map[string]*prometheus.GaugeVec
}

// New creates the engine's metrics collection, registering every
// collector against registerer (DefaultRegisterer if nil).
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = DefaultRegisterer
	}

	return &Metrics{
		WorkerMessagesSent: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigcollect_worker_messages_sent_total",
				Help: "Total number of signal/request messages sent by a worker.",
			},
			[]string{"worker"},
		),
		WorkerMessagesReceived: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigcollect_worker_messages_received_total",
				Help: "Total number of messages received by a worker, excluding heartbeats and control messages.",
			},
			[]string{"worker"},
		),
		WorkerVerticesAdded: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigcollect_worker_vertices_added_total",
				Help: "Total number of vertices added to a worker's shard.",
			},
			[]string{"worker"},
		),
		WorkerVerticesRemoved: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigcollect_worker_vertices_removed_total",
				Help: "Total number of vertices removed from a worker's shard.",
			},
			[]string{"worker"},
		),
		WorkerEdgesAdded: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigcollect_worker_edges_added_total",
				Help: "Total number of outgoing edges added on a worker's shard.",
			},
			[]string{"worker"},
		),
		WorkerEdgesRemoved: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigcollect_worker_edges_removed_total",
				Help: "Total number of outgoing edges removed from a worker's shard.",
			},
			[]string{"worker"},
		),
		WorkerIdle: promauto.With(registerer).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sigcollect_worker_idle",
				Help: "1 if the worker is currently idle, 0 otherwise.",
			},
			[]string{"worker"},
		),
		WorkerThrottled: promauto.With(registerer).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sigcollect_worker_throttled",
				Help: "1 if the worker is currently suppressing outgoing signal sends, 0 otherwise.",
			},
			[]string{"worker"},
		),
		GlobalInboxSize: promauto.With(registerer).NewGauge(
			prometheus.GaugeOpts{
				Name: "sigcollect_global_inbox_size",
				Help: "messagesSentByWorkers - messagesReceivedByWorkers across the whole system.",
			},
		),
		GlobalIdleWorkers: promauto.With(registerer).NewGauge(
			prometheus.GaugeOpts{
				Name: "sigcollect_global_idle_workers",
				Help: "Number of workers currently reporting idle.",
			},
		),
		GlobalSuperstep: promauto.With(registerer).NewGauge(
			prometheus.GaugeOpts{
				Name: "sigcollect_global_superstep",
				Help: "Current superstep number under synchronous execution.",
			},
		),
		NodesRegistered: promauto.With(registerer).NewGauge(
			prometheus.GaugeOpts{
				Name: "sigcollect_nodes_registered",
				Help: "Number of nodes that have completed provisioner registration.",
			},
		),
		customCounters: make(map[string]*prometheus.CounterVec),
		customGauges:   make(map[string]*prometheus.GaugeVec),
	}
}

// Observe snapshots a worker's counters and idle/throttle state onto
// the per-worker vectors (§4.4 WorkerStatus, §4.6 throttle gate).
func (m *Metrics) Observe(workerIndex int, counters graph.Counters, sent int64, idle, throttled bool) {
	label := strconv.Itoa(workerIndex)
	m.WorkerMessagesSent.WithLabelValues(label).Add(float64(sent))
	m.WorkerMessagesReceived.WithLabelValues(label).Add(float64(counters.MessagesReceived))
	m.WorkerVerticesAdded.WithLabelValues(label).Add(float64(counters.VerticesAdded))
	m.WorkerVerticesRemoved.WithLabelValues(label).Add(float64(counters.VerticesRemoved))
	m.WorkerEdgesAdded.WithLabelValues(label).Add(float64(counters.EdgesAdded))
	m.WorkerEdgesRemoved.WithLabelValues(label).Add(float64(counters.EdgesRemoved))
	m.WorkerIdle.WithLabelValues(label).Set(boolToFloat(idle))
	m.WorkerThrottled.WithLabelValues(label).Set(boolToFloat(throttled))
}

// UpdateGlobal snapshots the coordinator-level gauges (§4.5 "Global
// accounting formulas").
func (m *Metrics) UpdateGlobal(inboxSize int64, idleWorkers int, superstep int64) {
	m.GlobalInboxSize.Set(float64(inboxSize))
	m.GlobalIdleWorkers.Set(float64(idleWorkers))
	m.GlobalSuperstep.Set(float64(superstep))
}

// UpdateNodesRegistered reflects the provisioner's registration count
// (§6 LocalProvisioner).
func (m *Metrics) UpdateNodesRegistered(count int) {
	m.NodesRegistered.Set(float64(count))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Counter creates or returns a custom counter, for algorithm-specific
// metrics an AggregationOp or vertex implementation wants to publish.
func (m *Metrics) Counter(name, help string, labels ...string) *prometheus.CounterVec {
	m.customMu.RLock()
	if c, ok := m.customCounters[name]; ok {
		m.customMu.RUnlock()
		return c
	}
	m.customMu.RUnlock()

	m.customMu.Lock()
	defer m.customMu.Unlock()
	if c, ok := m.customCounters[name]; ok {
		return c
	}
	c := promauto.With(DefaultRegisterer).NewCounterVec(
		prometheus.CounterOpts{Name: name, Help: help},
		labels,
	)
	m.customCounters[name] = c
	return c
}

// Gauge creates or returns a custom gauge, mirroring Counter.
func (m *Metrics) Gauge(name, help string, labels ...string) *prometheus.GaugeVec {
	m.customMu.RLock()
	if g, ok := m.customGauges[name]; ok {
		m.customMu.RUnlock()
		return g
	}
	m.customMu.RUnlock()

	m.customMu.Lock()
	defer m.customMu.Unlock()
	if g, ok := m.customGauges[name]; ok {
		return g
	}
	g := promauto.With(DefaultRegisterer).NewGaugeVec(
		prometheus.GaugeOpts{Name: name, Help: help},
		labels,
	)
	m.customGauges[name] = g
	return g
}
