// Package editor implements the GraphEditor surface of §6: the API an
// algorithm (or a CLI driver like cmd/localrun) uses from outside the
// actor system, as opposed to the graph.Editor interface a Worker hands
// to a Vertex's own callbacks from inside.
//
// Every mutating call here is a Request routed over the bus to the
// worker or coordinator that owns the relevant state, never a direct
// field access — the actors underneath remain single-threaded (§5);
// GraphEditor is just a convenient client of their mailboxes.
package editor

import (
	"context"
	"fmt"

	"github.com/vertexflow/sigcollect/pkg/bus"
	"github.com/vertexflow/sigcollect/pkg/coordinator"
	"github.com/vertexflow/sigcollect/pkg/graph"
	"github.com/vertexflow/sigcollect/pkg/worker"
)

// ExecutionMode is one of the five modes of §6's execution configuration.
type ExecutionMode string

const (
	Synchronous            ExecutionMode = "Synchronous"
	OptimizedAsynchronous  ExecutionMode = "OptimizedAsynchronous"
	PureAsynchronous       ExecutionMode = "PureAsynchronous"
	ContinuousAsynchronous ExecutionMode = "ContinuousAsynchronous"
	Interactive            ExecutionMode = "Interactive"
)

// GraphEditor is the external-facing handle onto a running engine: one
// bus, one coordinator, numberOfWorkers workers reachable through them.
type GraphEditor[ID comparable, S any] struct {
	bus             *bus.Bus[ID, S]
	coord           *coordinator.Coordinator[ID, S]
	numberOfWorkers int
}

// New builds a GraphEditor over an already-wired bus and coordinator.
func New[ID comparable, S any](b *bus.Bus[ID, S], coord *coordinator.Coordinator[ID, S], numberOfWorkers int) *GraphEditor[ID, S] {
	return &GraphEditor[ID, S]{bus: b, coord: coord, numberOfWorkers: numberOfWorkers}
}

// AddVertex routes v to its owning worker (§6 addVertex(v)).
func (e *GraphEditor[ID, S]) AddVertex(v graph.Vertex[ID, S]) error {
	cmd := worker.Command[ID, S](func(w *worker.Worker[ID, S]) any {
		w.AddVertex(v)
		return nil
	})
	return e.bus.SendToWorkerForVertexId(graph.Request{Command: cmd}, v.ID())
}

// AddEdge routes an outgoing edge addition to sourceID's owning worker
// (§6 addEdge(sourceId, edge)).
func (e *GraphEditor[ID, S]) AddEdge(sourceID ID, edge graph.Edge[ID]) error {
	cmd := worker.Command[ID, S](func(w *worker.Worker[ID, S]) any {
		w.AddEdge(sourceID, edge)
		return nil
	})
	return e.bus.SendToWorkerForVertexId(graph.Request{Command: cmd}, sourceID)
}

// RemoveVertex routes a vertex removal to its owning worker (§6
// removeVertex(id)).
func (e *GraphEditor[ID, S]) RemoveVertex(id ID) error {
	cmd := worker.Command[ID, S](func(w *worker.Worker[ID, S]) any {
		w.RemoveVertex(id)
		return nil
	})
	return e.bus.SendToWorkerForVertexId(graph.Request{Command: cmd}, id)
}

// RemoveEdge routes an outgoing edge removal to sourceID's owning worker
// (§6 removeEdge(edgeId), where an edge is identified by its endpoints —
// this module has no separate edge-id namespace).
func (e *GraphEditor[ID, S]) RemoveEdge(sourceID, targetID ID) error {
	cmd := worker.Command[ID, S](func(w *worker.Worker[ID, S]) any {
		w.RemoveEdge(sourceID, targetID)
		return nil
	})
	return e.bus.SendToWorkerForVertexId(graph.Request{Command: cmd}, sourceID)
}

// SendSignal routes payload to targetID (§6 sendSignal(payload, targetId,
// sourceId?)).
func (e *GraphEditor[ID, S]) SendSignal(payload S, targetID ID, sourceID *ID) error {
	return e.bus.SendSignal(payload, targetID, sourceID)
}

// ModifyGraph evaluates mutator against a graph.Editor on onWorker, or
// against every worker if onWorker is negative (§6 modifyGraph(mutator,
// onWorker?)).
func (e *GraphEditor[ID, S]) ModifyGraph(mutator func(graph.Editor[ID, S]), onWorker int) error {
	cmd := worker.Command[ID, S](func(w *worker.Worker[ID, S]) any {
		mutator(w)
		return nil
	})
	if onWorker >= 0 {
		return e.bus.SendToWorkerIndex(onWorker, graph.Request{Command: cmd})
	}
	for i := 0; i < e.numberOfWorkers; i++ {
		if err := e.bus.SendToWorkerIndex(i, graph.Request{Command: cmd}); err != nil {
			return err
		}
	}
	return nil
}

// ForeachVertex runs f against every vertex on every worker, blocking
// until all workers have replied (§6 foreachVertex(f)).
func (e *GraphEditor[ID, S]) ForeachVertex(f func(graph.Vertex[ID, S])) error {
	cmd := worker.Command[ID, S](func(w *worker.Worker[ID, S]) any {
		w.ForeachVertex(f)
		return nil
	})
	_, err := requestAll[ID, S](e.bus, e.numberOfWorkers, cmd)
	return err
}

// Aggregate folds op across every worker (§6 aggregate(op)).
func Aggregate[ID comparable, S any, R any](e *GraphEditor[ID, S], op graph.AggregationOp[ID, S, R]) R {
	return coordinator.Aggregate[ID, S, R](e.coord, op)
}

// AwaitIdle blocks until the coordinator reports the whole system
// globally idle (§6 awaitIdle). The OnIdle registration itself must run
// on the coordinator's own goroutine, so it travels there as a Request.
func (e *GraphEditor[ID, S]) AwaitIdle(ctx context.Context) error {
	done := make(chan struct{})
	cmd := coordinator.Command[ID, S](func(c *coordinator.Coordinator[ID, S]) any {
		c.OnIdle(func() { close(done) })
		return nil
	})
	if err := e.bus.SendToCoordinator(graph.Request{Command: cmd}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Execute runs the computation to completion under the given mode (§6
// execute(config)): Synchronous and OptimizedAsynchronous drive the
// coordinator's synchronous superstep loop directly; the remaining
// modes assume the workers are already running asynchronously and just
// wait for the coordinator's idle detection.
func (e *GraphEditor[ID, S]) Execute(ctx context.Context, mode ExecutionMode) (coordinator.TerminationReason, error) {
	switch mode {
	case Synchronous, OptimizedAsynchronous:
		return e.coord.RunSynchronous(ctx)
	case PureAsynchronous, ContinuousAsynchronous, Interactive:
		if err := e.AwaitIdle(ctx); err != nil {
			if ctx.Err() != nil {
				return coordinator.Paused, err
			}
			return coordinator.Error, err
		}
		return coordinator.Converged, nil
	default:
		return coordinator.Error, fmt.Errorf("editor: unknown execution mode %q", mode)
	}
}

// Shutdown broadcasts a PoisonPill to every worker (§5 "a PoisonPill-
// equivalent control message causes the worker to run
// vertexStore.cleanUp and exit"). Like a heartbeat, it is exempt from
// the message conservation invariant.
func (e *GraphEditor[ID, S]) Shutdown() error {
	return e.bus.SendToWorkers(graph.PoisonPill{}, false)
}
