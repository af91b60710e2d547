package worker

import (
	"testing"
	"time"

	"github.com/vertexflow/sigcollect/pkg/bus"
	"github.com/vertexflow/sigcollect/pkg/concurrency"
	"github.com/vertexflow/sigcollect/pkg/graph"
)

type counterVertex struct {
	id            int
	signalScore   float64
	collectScore  float64
	edges         []graph.Edge[int]
	signalCalls   int
	collectCalls  int
	lastSignals   []float64
	incoming      []graph.Edge[int]
}

func (v *counterVertex) ID() int                                         { return v.id }
func (v *counterVertex) AfterInitialization(graph.Editor[int, float64])  {}
func (v *counterVertex) ExecuteSignalOperation(graph.Editor[int, float64]) {
	v.signalCalls++
	v.signalScore = 0
}
func (v *counterVertex) ExecuteCollectOperation(signals []float64, _ graph.Editor[int, float64]) {
	v.collectCalls++
	v.lastSignals = signals
	v.collectScore = 0
}
func (v *counterVertex) ScoreSignal() float64               { return v.signalScore }
func (v *counterVertex) ScoreCollect(signals []float64) float64 { return v.collectScore }
func (v *counterVertex) BeforeRemoval()                     {}
func (v *counterVertex) OutgoingEdgeCount() int              { return len(v.edges) }
func (v *counterVertex) AddOutgoingEdge(e graph.Edge[int]) bool {
	for _, existing := range v.edges {
		if existing.TargetID == e.TargetID {
			return false
		}
	}
	v.edges = append(v.edges, e)
	return true
}
func (v *counterVertex) RemoveOutgoingEdge(targetID int) bool {
	for i, e := range v.edges {
		if e.TargetID == targetID {
			v.edges = append(v.edges[:i], v.edges[i+1:]...)
			return true
		}
	}
	return false
}
func (v *counterVertex) AddIncomingEdge(e graph.Edge[int])  { v.incoming = append(v.incoming, e) }
func (v *counterVertex) RemoveIncomingEdge(sourceID int) {
	for i, e := range v.incoming {
		if e.SourceID == sourceID {
			v.incoming = append(v.incoming[:i], v.incoming[i+1:]...)
			return
		}
	}
}

func newTestWorker(t *testing.T, idx, numberOfWorkers int) (*Worker[int, float64], *bus.Bus[int, float64]) {
	t.Helper()
	b := bus.New[int, float64](numberOfWorkers, numberOfWorkers)
	w := New[int, float64](Config[int, float64]{
		Index:            idx,
		Mapper:           b.Mapper(),
		Bus:              b,
		SignalThreshold:  0.001,
		CollectThreshold: 0.0,
	})
	b.RegisterWorker(idx, w.Mailbox())
	for i := 0; i < numberOfWorkers; i++ {
		if i != idx {
			b.RegisterWorker(i, concurrency.NewBoundedMailbox(64))
		}
	}
	for i := 0; i < b.Mapper().NumberOfNodes(); i++ {
		b.RegisterNode(i, concurrency.NewBoundedMailbox(64))
	}
	b.RegisterCoordinator(concurrency.NewBoundedMailbox(64))
	return w, b
}

func TestInitialStateIsPaused(t *testing.T) {
	w, _ := newTestWorker(t, 0, 1)
	if w.CurrentState() != StatePaused {
		t.Fatalf("initial state = %s, want Paused", w.CurrentState())
	}
}

func TestStartTransitionsToRunning(t *testing.T) {
	w, _ := newTestWorker(t, 0, 1)
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if w.CurrentState() != StateRunning {
		t.Fatalf("state = %s, want Running", w.CurrentState())
	}
}

func TestAddVertexSchedulesBothQueues(t *testing.T) {
	w, _ := newTestWorker(t, 0, 1)
	v := &counterVertex{id: 1, signalScore: 1.0}
	w.AddVertex(v)

	if w.Counters().VerticesAdded != 1 {
		t.Fatalf("VerticesAdded = %d, want 1", w.Counters().VerticesAdded)
	}
	if w.store.ToSignal.IsEmpty() {
		t.Fatal("toSignal should contain the new vertex")
	}
	if !w.store.ToCollect.Has(1) {
		t.Fatal("toCollect should contain the new vertex")
	}
}

func TestSignalVertexBelowThresholdSkipsExecution(t *testing.T) {
	w, _ := newTestWorker(t, 0, 1)
	v := &counterVertex{id: 1, signalScore: 0.0}
	w.store.Put(v)

	w.signalVertex(1)
	if v.signalCalls != 0 {
		t.Fatalf("signalCalls = %d, want 0 (below threshold)", v.signalCalls)
	}
}

func TestSignalVertexAboveThresholdExecutesAndCounts(t *testing.T) {
	w, _ := newTestWorker(t, 0, 1)
	v := &counterVertex{id: 1, signalScore: 1.0}
	w.store.Put(v)

	w.signalVertex(1)
	if v.signalCalls != 1 {
		t.Fatalf("signalCalls = %d, want 1", v.signalCalls)
	}
	if w.Counters().SignalOperationsExecuted != 1 {
		t.Fatalf("SignalOperationsExecuted = %d, want 1", w.Counters().SignalOperationsExecuted)
	}
}

func TestCollectVertexReschedulesForSignalWhenAboveThreshold(t *testing.T) {
	w, _ := newTestWorker(t, 0, 1)
	v := &counterVertex{id: 1, collectScore: 1.0, signalScore: 1.0}
	w.store.Put(v)

	w.collectVertex(1, []float64{0.2, 0.3}, true)

	if v.collectCalls != 1 {
		t.Fatalf("collectCalls = %d, want 1", v.collectCalls)
	}
	if len(v.lastSignals) != 2 {
		t.Fatalf("lastSignals = %v, want 2 entries", v.lastSignals)
	}
	if w.store.ToSignal.IsEmpty() {
		t.Fatal("vertex with signalScore above threshold should be scheduled on toSignal")
	}
}

func TestCollectVertexMissingOffersUndeliverable(t *testing.T) {
	var offered []graph.SignalMessage[int, float64]
	w := New[int, float64](Config[int, float64]{
		Index:            0,
		Bus:              bus.New[int, float64](1, 1),
		SignalThreshold:  0.001,
		CollectThreshold: 0.0,
		UndeliverableSignalHandler: func(m graph.SignalMessage[int, float64]) {
			offered = append(offered, m)
		},
	})

	w.collectVertex(99, []float64{1.0, 2.0}, true)

	if len(offered) != 2 {
		t.Fatalf("offered = %v, want 2 undeliverable signals", offered)
	}
}

func TestSignalStepDrainsToSignalEntirely(t *testing.T) {
	w, _ := newTestWorker(t, 0, 1)
	for id := 1; id <= 3; id++ {
		w.store.Put(&counterVertex{id: id, signalScore: 1.0})
		w.store.ToSignal.Add(id)
	}
	w.SignalStep()
	if !w.store.ToSignal.IsEmpty() {
		t.Fatal("SignalStep should drain toSignal entirely")
	}
	if w.Counters().SignalOperationsExecuted != 3 {
		t.Fatalf("SignalOperationsExecuted = %d, want 3", w.Counters().SignalOperationsExecuted)
	}
}

func TestCollectStepReturnsWhetherToSignalEmpty(t *testing.T) {
	w, _ := newTestWorker(t, 0, 1)
	v := &counterVertex{id: 1, collectScore: 1.0, signalScore: 1.0}
	w.store.Put(v)
	w.store.ToCollect.AddSignal(graph.SignalMessage[int, float64]{TargetID: 1, Payload: 0.5})

	signalEmpty := w.CollectStep()
	if signalEmpty {
		t.Fatal("toSignal should contain vertex 1 after collect raised its signal score")
	}
}

func TestAddEdgeReschedulesSourceAndSendsIncomingEdgeRequest(t *testing.T) {
	w, _ := newTestWorker(t, 0, 2)
	source := &counterVertex{id: 1}
	w.store.Put(source)

	w.AddEdge(1, graph.NewEdge(1, 2, nil))
	if w.Counters().EdgesAdded != 1 {
		t.Fatalf("EdgesAdded = %d, want 1", w.Counters().EdgesAdded)
	}
	if w.store.ToSignal.IsEmpty() {
		t.Fatal("source vertex should be rescheduled on toSignal after AddEdge")
	}
}

func TestApplyIncomingEdgeIsNoOpForMissingVertex(t *testing.T) {
	w, _ := newTestWorker(t, 0, 1)
	// target id 6 was never added to the store; applyIncomingEdge must
	// not panic, just silently do nothing.
	w.applyIncomingEdge(graph.NewEdge(5, 6, nil))
}

func TestApplyIncomingEdgeUpdatesCapableVertex(t *testing.T) {
	w, _ := newTestWorker(t, 0, 1)
	v := &counterVertex{id: 6}
	w.store.Put(v)
	w.applyIncomingEdge(graph.NewEdge(5, 6, nil))
	if len(v.incoming) != 1 || v.incoming[0].SourceID != 5 {
		t.Fatalf("incoming = %v, want one edge from source 5", v.incoming)
	}
}

func TestAggregateFoldsOverOwnedVertices(t *testing.T) {
	w, _ := newTestWorker(t, 0, 1)
	for id := 1; id <= 3; id++ {
		w.store.Put(&counterVertex{id: id})
	}
	op := sumIDsOp{}
	total := Aggregate[int, float64, int](w, op)
	if total != 6 {
		t.Fatalf("total = %d, want 6", total)
	}
}

type sumIDsOp struct{}

func (sumIDsOp) Neutral() int                                  { return 0 }
func (sumIDsOp) Extract(v graph.Vertex[int, float64]) int      { return v.ID() }
func (sumIDsOp) Aggregate(a, b int) int                        { return a + b }

func TestHeartbeatEngagesThrottleOnBacklog(t *testing.T) {
	b := bus.New[int, float64](1, 1)
	w := New[int, float64](Config[int, float64]{
		Index:                           0,
		Mapper:                          b.Mapper(),
		Bus:                             b,
		ThrottleInboxThresholdPerWorker: 10,
	})
	b.RegisterWorker(0, w.Mailbox())
	b.RegisterNode(0, concurrency.NewBoundedMailbox(64))
	b.RegisterCoordinator(concurrency.NewBoundedMailbox(64))

	if w.IsThrottled() {
		t.Fatal("a fresh worker should not be throttled")
	}
	w.onHeartbeat(graph.Heartbeat{TimestampNanos: time.Now().UnixNano(), GlobalInbox: 44})
	if !w.IsThrottled() {
		t.Fatal("worker should be throttled once the heartbeat reports a backlog over threshold")
	}
	w.onHeartbeat(graph.Heartbeat{TimestampNanos: time.Now().UnixNano(), GlobalInbox: 0})
	if w.IsThrottled() {
		t.Fatal("worker should release once a later heartbeat reports the backlog cleared")
	}
}
