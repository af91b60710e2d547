package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vertexflow/sigcollect/pkg/graph"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return New(prometheus.NewRegistry())
}

func TestObserveRecordsPerWorkerCounters(t *testing.T) {
	m := newTestMetrics(t)
	m.Observe(0, graph.Counters{
		MessagesReceived: 4,
		VerticesAdded:    2,
		EdgesAdded:       1,
	}, 7, true, false)

	if got := testutil.ToFloat64(m.WorkerMessagesReceived.WithLabelValues("0")); got != 4 {
		t.Fatalf("WorkerMessagesReceived = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.WorkerMessagesSent.WithLabelValues("0")); got != 7 {
		t.Fatalf("WorkerMessagesSent = %v, want 7", got)
	}
	if got := testutil.ToFloat64(m.WorkerIdle.WithLabelValues("0")); got != 1 {
		t.Fatalf("WorkerIdle = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.WorkerThrottled.WithLabelValues("0")); got != 0 {
		t.Fatalf("WorkerThrottled = %v, want 0", got)
	}
}

func TestUpdateGlobalSetsCoordinatorGauges(t *testing.T) {
	m := newTestMetrics(t)
	m.UpdateGlobal(5, 2, 3)

	if got := testutil.ToFloat64(m.GlobalInboxSize); got != 5 {
		t.Fatalf("GlobalInboxSize = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.GlobalIdleWorkers); got != 2 {
		t.Fatalf("GlobalIdleWorkers = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.GlobalSuperstep); got != 3 {
		t.Fatalf("GlobalSuperstep = %v, want 3", got)
	}
}

func TestCustomCounterIsCreatedOnceAndReused(t *testing.T) {
	m := newTestMetrics(t)
	first := m.Counter("sigcollect_test_custom_total", "a custom test counter")
	second := m.Counter("sigcollect_test_custom_total", "a custom test counter")
	if first != second {
		t.Fatal("Counter returned a different collector for the same name")
	}
}

func TestCustomGaugeIsCreatedOnceAndReused(t *testing.T) {
	m := newTestMetrics(t)
	first := m.Gauge("sigcollect_test_custom_gauge", "a custom test gauge")
	second := m.Gauge("sigcollect_test_custom_gauge", "a custom test gauge")
	if first != second {
		t.Fatal("Gauge returned a different collector for the same name")
	}
}
