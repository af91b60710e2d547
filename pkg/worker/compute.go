package worker

import (
	"fmt"

	"github.com/vertexflow/sigcollect/pkg/graph"
)

// signalVertex implements the "signal" semantics of §4.3: only signal a
// vertex whose score clears the threshold, guard the call against a
// panicking vertex implementation, and count the attempt regardless of
// whether it actually emitted anything.
func (w *Worker[ID, S]) signalVertex(id ID) {
	v, ok := w.store.Get(id)
	if !ok {
		return
	}
	if v.ScoreSignal() <= w.signalThreshold {
		return
	}
	w.safeCall(func() {
		v.ExecuteSignalOperation(w)
		w.counters.SignalOperationsExecuted++
		w.store.UpdateStateOfVertex(v)
	})
}

// collectVertex implements the "collect" semantics of §4.3. addToSignal
// decides whether a freshly collected vertex is queued in toSignal; both
// the asynchronous drain (collectOne) and the synchronous CollectStep pass
// true, and CollectStep reports whether toSignal ended up empty.
func (w *Worker[ID, S]) collectVertex(id ID, signals []S, addToSignal bool) {
	v, ok := w.store.Get(id)
	if !ok {
		w.offerUndeliverable(id, signals)
		return
	}
	if v.ScoreCollect(signals) <= w.collectThreshold {
		return
	}
	w.safeCall(func() {
		v.ExecuteCollectOperation(signals, w)
		w.counters.CollectOperationsExecuted++
		w.store.UpdateStateOfVertex(v)
		if addToSignal && v.ScoreSignal() > w.signalThreshold {
			w.store.ToSignal.Add(id)
		}
	})
}

func (w *Worker[ID, S]) offerUndeliverable(id ID, signals []S) {
	if w.undeliverableSignalHandler == nil {
		return
	}
	for _, payload := range signals {
		w.undeliverableSignalHandler(graph.SignalMessage[ID, S]{TargetID: id, Payload: payload})
	}
}

// safeCall contains a panicking vertex callback, logging it at Severe and
// treating the step as "not executed" rather than taking the worker down
// (§7: per-vertex fault containment).
func (w *Worker[ID, S]) safeCall(f func()) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Severe(fmt.Errorf("%v", r), "worker ", w.index, " vertex callback panicked")
		}
	}()
	f()
}

// recalculateScores re-schedules every owned vertex into both work
// queues so threshold gates are re-tested (§4.3 "Recalculation").
func (w *Worker[ID, S]) recalculateScores() {
	w.store.Foreach(func(v graph.Vertex[ID, S]) {
		w.recalculateScoresForVertexWithId(v.ID())
	})
}

// recalculateScoresForVertexWithId re-schedules one vertex into both
// queues.
func (w *Worker[ID, S]) recalculateScoresForVertexWithId(id ID) {
	w.store.ToSignal.Add(id)
	w.store.ToCollect.AddVertex(id)
}

// Aggregate folds op over every vertex this worker owns, starting from
// op.Neutral() (§4.3 "Aggregation"). The Coordinator combines each
// worker's partial result with the same op.Aggregate.
func Aggregate[ID comparable, S any, R any](w *Worker[ID, S], op graph.AggregationOp[ID, S, R]) R {
	acc := op.Neutral()
	w.store.Foreach(func(v graph.Vertex[ID, S]) {
		acc = op.Aggregate(acc, op.Extract(v))
	})
	return acc
}
