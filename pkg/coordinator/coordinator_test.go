package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/vertexflow/sigcollect/pkg/bus"
	"github.com/vertexflow/sigcollect/pkg/concurrency"
	"github.com/vertexflow/sigcollect/pkg/graph"
	"github.com/vertexflow/sigcollect/pkg/worker"
)

// onceVertex signals exactly once, then its score drops to zero so a
// synchronous run converges after a single superstep.
type onceVertex struct {
	id       int
	signaled bool
}

func (v *onceVertex) ID() int                                              { return v.id }
func (v *onceVertex) AfterInitialization(graph.Editor[int, float64])       {}
func (v *onceVertex) ExecuteSignalOperation(graph.Editor[int, float64])    { v.signaled = true }
func (v *onceVertex) ExecuteCollectOperation([]float64, graph.Editor[int, float64]) {}
func (v *onceVertex) ScoreSignal() float64 {
	if v.signaled {
		return 0
	}
	return 1
}
func (v *onceVertex) ScoreCollect([]float64) float64        { return 0 }
func (v *onceVertex) BeforeRemoval()                        {}
func (v *onceVertex) OutgoingEdgeCount() int                { return 0 }
func (v *onceVertex) AddOutgoingEdge(graph.Edge[int]) bool  { return true }
func (v *onceVertex) RemoveOutgoingEdge(int) bool           { return true }

// foreverVertex signals itself every time it runs, so ScoreCollect stays
// above threshold on every delivery and it re-enters toSignal forever:
// RunSynchronous only stops on it via stepsLimit/timeLimit/
// globalTerminationCondition, never Converged.
type foreverVertex struct{ id int }

func (v *foreverVertex) ID() int                                        { return v.id }
func (v *foreverVertex) AfterInitialization(graph.Editor[int, float64]) {}
func (v *foreverVertex) ExecuteSignalOperation(e graph.Editor[int, float64]) {
	e.SendSignal(1.0, v.id, &v.id)
}
func (v *foreverVertex) ExecuteCollectOperation([]float64, graph.Editor[int, float64]) {}
func (v *foreverVertex) ScoreSignal() float64                { return 1 }
func (v *foreverVertex) ScoreCollect([]float64) float64       { return 1 }
func (v *foreverVertex) BeforeRemoval()                       {}
func (v *foreverVertex) OutgoingEdgeCount() int                { return 0 }
func (v *foreverVertex) AddOutgoingEdge(graph.Edge[int]) bool  { return true }
func (v *foreverVertex) RemoveOutgoingEdge(int) bool           { return true }

// build wires numberOfWorkers real workers onto a shared bus, without
// starting their Run loops yet: vertices must be seeded before the
// worker goroutines start, since AddVertex is only safe to call from a
// worker's own goroutine once that loop is running (§5).
func build(t *testing.T, numberOfWorkers int) (*bus.Bus[int, float64], []*worker.Worker[int, float64]) {
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
		})
		b.RegisterWorker(i, w.Mailbox())
		workers[i] = w
	}
	for i := 0; i < b.Mapper().NumberOfNodes(); i++ {
		b.RegisterNode(i, concurrency.NewBoundedMailbox(64))
	}
	b.RegisterCoordinator(concurrency.NewBoundedMailbox(64))
	return b, workers
}

// start launches every worker's Run loop in its own goroutine.
func start(workers []*worker.Worker[int, float64], ctx context.Context) {
	for _, w := range workers {
		go w.Run(ctx)
	}
}

// harness builds numberOfWorkers workers with no vertices and starts
// their Run loops immediately, for tests that don't seed any state.
func harness(t *testing.T, numberOfWorkers int) (*bus.Bus[int, float64], []*worker.Worker[int, float64], context.Context, context.CancelFunc) {
	t.Helper()
	b, workers := build(t, numberOfWorkers)
	ctx, cancel := context.WithCancel(context.Background())
	start(workers, ctx)
	return b, workers, ctx, cancel
}

func newTestCoordinator(b *bus.Bus[int, float64], numberOfWorkers int, opts func(*Config[int, float64])) *Coordinator[int, float64] {
	cfg := Config[int, float64]{Bus: b, NumberOfWorkers: numberOfWorkers}
	if opts != nil {
		opts(&cfg)
	}
	return New[int, float64](cfg)
}

func TestRunSynchronousConvergesWithNoVertices(t *testing.T) {
	b, _, _, cancel := harness(t, 2)
	defer cancel()
	c := newTestCoordinator(b, 2, nil)

	reason, err := c.RunSynchronous(context.Background())
	if err != nil {
		t.Fatalf("RunSynchronous failed: %v", err)
	}
	if reason != Converged {
		t.Fatalf("reason = %s, want Converged", reason)
	}
}

func TestRunSynchronousConvergesAfterOneSuperstep(t *testing.T) {
	b, workers := build(t, 1)
	workers[0].AddVertex(&onceVertex{id: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	start(workers, ctx)

	c := newTestCoordinator(b, 1, nil)
	reason, err := c.RunSynchronous(context.Background())
	if err != nil {
		t.Fatalf("RunSynchronous failed: %v", err)
	}
	if reason != Converged {
		t.Fatalf("reason = %s, want Converged", reason)
	}
}

func TestRunSynchronousStopsAtStepsLimit(t *testing.T) {
	b, workers := build(t, 1)
	workers[0].AddVertex(&foreverVertex{id: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	start(workers, ctx)

	c := newTestCoordinator(b, 1, func(cfg *Config[int, float64]) {
		cfg.StepsLimit = 3
	})
	reason, err := c.RunSynchronous(context.Background())
	if err != nil {
		t.Fatalf("RunSynchronous failed: %v", err)
	}
	if reason != TimeLimitReached {
		t.Fatalf("reason = %s, want TimeLimitReached", reason)
	}
	if c.steps != 3 {
		t.Fatalf("steps = %d, want 3", c.steps)
	}
}

func TestRunSynchronousStopsOnGlobalTerminationCondition(t *testing.T) {
	b, workers := build(t, 1)
	workers[0].AddVertex(&foreverVertex{id: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	start(workers, ctx)

	var checks int
	c := newTestCoordinator(b, 1, func(cfg *Config[int, float64]) {
		cfg.GlobalTerminationCondition = func() bool {
			checks++
			return checks >= 2
		}
	})
	reason, err := c.RunSynchronous(context.Background())
	if err != nil {
		t.Fatalf("RunSynchronous failed: %v", err)
	}
	if reason != GlobalConstraintMet {
		t.Fatalf("reason = %s, want GlobalConstraintMet", reason)
	}
}

func TestAggregateSumsAcrossWorkers(t *testing.T) {
	b, workers := build(t, 2)
	for id := 1; id <= 4; id++ {
		workers[id%2].AddVertex(&onceVertex{id: id})
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	start(workers, ctx)

	c := newTestCoordinator(b, 2, nil)
	total := Aggregate[int, float64, int](c, sumIDsOp{})
	if total != 1+2+3+4 {
		t.Fatalf("total = %d, want 10", total)
	}
}

type sumIDsOp struct{}

func (sumIDsOp) Neutral() int                             { return 0 }
func (sumIDsOp) Extract(v graph.Vertex[int, float64]) int { return v.ID() }
func (sumIDsOp) Aggregate(a, b int) int                   { return a + b }

func TestOnWorkerStatusIgnoresStaleUpdate(t *testing.T) {
	c := New[int, float64](Config[int, float64]{Bus: bus.New[int, float64](2, 2), NumberOfWorkers: 2})
	c.OnWorkerStatus(graph.WorkerStatus{WorkerID: 0, MessagesSent: 5, IsIdle: false})
	c.OnWorkerStatus(graph.WorkerStatus{WorkerID: 0, MessagesSent: 3, IsIdle: true})
	if c.workerStatus[0].MessagesSent != 5 {
		t.Fatalf("MessagesSent = %d, want 5 (stale update must be ignored)", c.workerStatus[0].MessagesSent)
	}
}

func TestOnWorkerStatusRunsOnIdleListOnceGloballyIdle(t *testing.T) {
	c := New[int, float64](Config[int, float64]{Bus: bus.New[int, float64](2, 2), NumberOfWorkers: 2})
	var ran bool
	c.OnIdle(func() { ran = true })

	c.OnWorkerStatus(graph.WorkerStatus{WorkerID: 0, IsIdle: true, MessagesSent: 0, MessagesReceived: 0})
	if ran {
		t.Fatal("should not run onIdleList until every worker has reported")
	}
	c.OnWorkerStatus(graph.WorkerStatus{WorkerID: 1, IsIdle: true, MessagesSent: 0, MessagesReceived: 0})
	if !ran {
		t.Fatal("onIdleList should run once every worker is idle and counts agree")
	}
}

func TestOnIdleRunsImmediatelyWhenAlreadyIdle(t *testing.T) {
	c := New[int, float64](Config[int, float64]{Bus: bus.New[int, float64](1, 1), NumberOfWorkers: 1})
	c.OnWorkerStatus(graph.WorkerStatus{WorkerID: 0, IsIdle: true})

	var ran bool
	c.OnIdle(func() { ran = true })
	if !ran {
		t.Fatal("OnIdle should run synchronously when the system is already idle")
	}
}

func TestGlobalInboxSizeReflectsSentMinusReceived(t *testing.T) {
	c := New[int, float64](Config[int, float64]{Bus: bus.New[int, float64](1, 1), NumberOfWorkers: 1})
	c.OnWorkerStatus(graph.WorkerStatus{WorkerID: 0, MessagesSent: 7, MessagesReceived: 2})
	if got := c.globalInboxSize(); got != 7-2 {
		t.Fatalf("globalInboxSize = %d, want %d", got, 7-2)
	}
}

func TestHeartbeatBroadcastsToWorkersAndNodesWithoutCountingReceived(t *testing.T) {
	b, _, _, cancel := harness(t, 2)
	defer cancel()
	c := newTestCoordinator(b, 2, nil)

	if err := c.Heartbeat(); err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}
	// give the worker goroutines a moment to drain the heartbeat message
	time.Sleep(20 * time.Millisecond)
	if b.Stats().Received != 0 {
		t.Fatalf("Received = %d, want 0 (heartbeats are exempt)", b.Stats().Received)
	}
}
