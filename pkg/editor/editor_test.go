package editor

import (
	"context"
	"testing"
	"time"

	"github.com/vertexflow/sigcollect/pkg/bus"
	"github.com/vertexflow/sigcollect/pkg/concurrency"
	"github.com/vertexflow/sigcollect/pkg/coordinator"
	"github.com/vertexflow/sigcollect/pkg/graph"
	"github.com/vertexflow/sigcollect/pkg/worker"
)

// recordingVertex signals once, forwarding a signal along each outgoing
// edge, and records what it collects.
type recordingVertex struct {
	id           int
	signaled     bool
	edges        []graph.Edge[int]
	lastSignals  []float64
	collectCalls int
}

func (v *recordingVertex) ID() int                                        { return v.id }
func (v *recordingVertex) AfterInitialization(graph.Editor[int, float64]) {}
func (v *recordingVertex) ExecuteSignalOperation(e graph.Editor[int, float64]) {
	v.signaled = true
	for _, edge := range v.edges {
		e.SendSignal(1.0, edge.TargetID, &v.id)
	}
}
func (v *recordingVertex) ExecuteCollectOperation(signals []float64, _ graph.Editor[int, float64]) {
	v.collectCalls++
	v.lastSignals = signals
}
func (v *recordingVertex) ScoreSignal() float64 {
	if v.signaled {
		return 0
	}
	return 1
}
func (v *recordingVertex) ScoreCollect(signals []float64) float64 { return float64(len(signals)) }
func (v *recordingVertex) BeforeRemoval()                 {}
func (v *recordingVertex) OutgoingEdgeCount() int         { return len(v.edges) }
func (v *recordingVertex) AddOutgoingEdge(e graph.Edge[int]) bool {
	v.edges = append(v.edges, e)
	return true
}
func (v *recordingVertex) RemoveOutgoingEdge(targetID int) bool {
	for i, e := range v.edges {
		if e.TargetID == targetID {
			v.edges = append(v.edges[:i], v.edges[i+1:]...)
			return true
		}
	}
	return false
}

// sumOp sums every vertex's id, exercising Aggregate through the editor.
type sumOp struct{}

func (sumOp) Neutral() int                               { return 0 }
func (sumOp) Extract(v graph.Vertex[int, float64]) int    { return v.ID() }
func (sumOp) Aggregate(a, b int) int                      { return a + b }

// build wires numberOfWorkers real workers and a real coordinator onto a
// shared bus without starting any goroutines yet, so vertices can be
// seeded first (§5: AddVertex is only safe once issued from a worker's
// own goroutine while that loop is running). Each worker's status goes
// straight to the coordinator, so the coordinator can observe idleness.
func build(t *testing.T, numberOfWorkers int) (*bus.Bus[int, float64], []*worker.Worker[int, float64], *coordinator.Coordinator[int, float64]) {
	t.Helper()
	b := bus.New[int, float64](numberOfWorkers, numberOfWorkers)
	workers := make([]*worker.Worker[int, float64], numberOfWorkers)
	for i := 0; i < numberOfWorkers; i++ {
		w := worker.New[int, float64](worker.Config[int, float64]{
			Index:            i,
			Mapper:           b.Mapper(),
			Bus:              b,
			SignalThreshold:  0.001,
			CollectThreshold: 0.0,
			StatusPublisher:  func(st graph.WorkerStatus) { _ = b.SendToCoordinator(st) },
		})
		b.RegisterWorker(i, w.Mailbox())
		workers[i] = w
	}
	for i := 0; i < b.Mapper().NumberOfNodes(); i++ {
		b.RegisterNode(i, concurrency.NewBoundedMailbox(64))
	}
	c := coordinator.New[int, float64](coordinator.Config[int, float64]{
		Bus:             b,
		NumberOfWorkers: numberOfWorkers,
	})
	b.RegisterCoordinator(c.Mailbox())
	return b, workers, c
}

// start launches every worker's and the coordinator's Run loop.
func start(ctx context.Context, workers []*worker.Worker[int, float64], c *coordinator.Coordinator[int, float64]) {
	for _, w := range workers {
		go w.Run(ctx)
	}
	go c.Run(ctx)
}

func TestAddVertexThenExecuteSynchronousRunsItOnce(t *testing.T) {
	b, workers, c := build(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	start(ctx, workers, c)

	e := New[int, float64](b, c, 1)
	v := &recordingVertex{id: 1}
	if err := e.AddVertex(v); err != nil {
		t.Fatalf("AddVertex failed: %v", err)
	}

	reason, err := e.Execute(context.Background(), Synchronous)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if reason != coordinator.Converged {
		t.Fatalf("reason = %s, want Converged", reason)
	}
}

func TestAddEdgeDeliversSignalAcrossWorkers(t *testing.T) {
	b, workers, c := build(t, 2)
	v1 := &recordingVertex{id: 1}
	v2 := &recordingVertex{id: 2}
	workers[b.WorkerIndexOf(1)].AddVertex(v1)
	workers[b.WorkerIndexOf(2)].AddVertex(v2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	start(ctx, workers, c)

	e := New[int, float64](b, c, 2)
	if err := e.AddEdge(1, graph.Edge[int]{SourceID: 1, TargetID: 2}); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	reason, err := e.Execute(context.Background(), Synchronous)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if reason != coordinator.Converged {
		t.Fatalf("reason = %s, want Converged", reason)
	}
	if v2.collectCalls == 0 {
		t.Fatal("target vertex never collected a signal sent over the new edge")
	}
}

func TestForeachVertexVisitsEveryWorkersShard(t *testing.T) {
	b, workers, c := build(t, 2)
	workers[b.WorkerIndexOf(1)].AddVertex(&recordingVertex{id: 1})
	workers[b.WorkerIndexOf(2)].AddVertex(&recordingVertex{id: 2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	start(ctx, workers, c)

	e := New[int, float64](b, c, 2)
	seen := make(chan int, 2)
	if err := e.ForeachVertex(func(v graph.Vertex[int, float64]) { seen <- v.ID() }); err != nil {
		t.Fatalf("ForeachVertex failed: %v", err)
	}
	close(seen)
	ids := map[int]bool{}
	for id := range seen {
		ids[id] = true
	}
	if !ids[1] || !ids[2] {
		t.Fatalf("ForeachVertex saw %v, want both 1 and 2", ids)
	}
}

func TestAggregateSumsVertexIdsAcrossWorkers(t *testing.T) {
	b, workers, c := build(t, 2)
	workers[b.WorkerIndexOf(1)].AddVertex(&recordingVertex{id: 1})
	workers[b.WorkerIndexOf(2)].AddVertex(&recordingVertex{id: 2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	start(ctx, workers, c)

	e := New[int, float64](b, c, 2)
	got := Aggregate[int, float64, int](e, sumOp{})
	if got != 3 {
		t.Fatalf("Aggregate = %d, want 3", got)
	}
}

func TestAwaitIdleReturnsOnceWorkersConverge(t *testing.T) {
	b, workers, c := build(t, 1)
	workers[0].AddVertex(&recordingVertex{id: 1})
	if err := workers[0].Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	start(ctx, workers, c)

	e := New[int, float64](b, c, 1)
	awaitCtx, awaitCancel := context.WithTimeout(context.Background(), time.Second)
	defer awaitCancel()
	if err := e.AwaitIdle(awaitCtx); err != nil {
		t.Fatalf("AwaitIdle failed: %v", err)
	}
}

func TestShutdownCausesWorkerRunLoopToExit(t *testing.T) {
	b, workers, c := build(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		workers[0].Run(ctx)
		close(done)
	}()
	go c.Run(ctx)

	e := New[int, float64](b, c, 1)
	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker Run loop did not exit after Shutdown broadcast a PoisonPill")
	}
}

func TestExecuteRejectsUnknownMode(t *testing.T) {
	b, workers, c := build(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	start(ctx, workers, c)

	e := New[int, float64](b, c, 1)
	reason, err := e.Execute(context.Background(), ExecutionMode("Bogus"))
	if err == nil {
		t.Fatal("Execute with an unknown mode did not return an error")
	}
	if reason != coordinator.Error {
		t.Fatalf("reason = %s, want Error", reason)
	}
}
