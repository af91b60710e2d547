package worker

import "github.com/vertexflow/sigcollect/pkg/graph"

// Worker implements graph.Editor[ID, S]: vertex callbacks receive the
// worker itself as their Editor, so edits made from inside
// ExecuteSignalOperation/ExecuteCollectOperation land directly on the
// owning worker's own state without another hop through the bus.
var _ graph.Editor[int, int] = (*Worker[int, int])(nil)

// SendSignal routes payload to targetID's owning worker via the bus
// (§4.2 sendSignal), unless this worker is currently throttled — §4.6
// gates only outgoing signal sends, never incoming delivery or local
// compute.
func (w *Worker[ID, S]) SendSignal(payload S, targetID ID, sourceID *ID) {
	if w.throttled {
		return
	}
	if err := w.msgbus.SendSignal(payload, targetID, sourceID); err != nil {
		w.logger.Warn("worker ", w.index, " send signal failed: ", err)
		return
	}
	w.messagesSent++
}

// SetThrottled is called by the throttle gate when the inbox-backlog or
// heartbeat-age thresholds are exceeded or clear (§4.6).
func (w *Worker[ID, S]) SetThrottled(throttled bool) {
	w.throttled = throttled
}

// IsThrottled reports whether this worker is currently suppressing
// outgoing signal sends.
func (w *Worker[ID, S]) IsThrottled() bool { return w.throttled }

// AddVertex adds v to this worker's shard (§4.1 VertexStore.Put), runs
// its initialization hook, and schedules it for evaluation on both work
// queues so its initial signal/collect scores get a chance to clear
// threshold.
func (w *Worker[ID, S]) AddVertex(v graph.Vertex[ID, S]) {
	if !w.store.Put(v) {
		return
	}
	w.counters.VerticesAdded++
	v.AfterInitialization(w)
	w.recalculateScoresForVertexWithId(v.ID())
}

// RemoveVertex runs the vertex's removal hook and drops it from the
// store (§4.1 VertexStore.Remove).
func (w *Worker[ID, S]) RemoveVertex(id ID) {
	v, ok := w.store.Get(id)
	if !ok {
		return
	}
	v.BeforeRemoval()
	w.store.Remove(id)
	w.counters.VerticesRemoved++
}

// AddEdge implements addOutgoingEdge (§4.3 "Vertex mutation operations"):
// on success it re-schedules the source vertex on both queues and sends a
// fire-and-forget addIncomingEdge Request to the target's owning worker
// (per SPEC_FULL.md's decided Open Question: both addIncomingEdge and
// removeIncomingEdge are fire-and-forget).
func (w *Worker[ID, S]) AddEdge(sourceID ID, e graph.Edge[ID]) {
	v, ok := w.store.Get(sourceID)
	if !ok {
		return
	}
	if !v.AddOutgoingEdge(e) {
		return
	}
	w.counters.EdgesAdded++
	w.recalculateScoresForVertexWithId(sourceID)
	w.sendAddIncomingEdge(e)
}

// RemoveEdge implements removeOutgoingEdge: on success it re-schedules
// the source vertex and sends a fire-and-forget removeIncomingEdge
// Request to the target's owning worker.
func (w *Worker[ID, S]) RemoveEdge(sourceID, targetID ID) {
	v, ok := w.store.Get(sourceID)
	if !ok {
		return
	}
	if !v.RemoveOutgoingEdge(targetID) {
		return
	}
	w.counters.EdgesRemoved++
	w.recalculateScoresForVertexWithId(sourceID)
	w.sendRemoveIncomingEdge(sourceID, targetID)
}

// ForeachVertex runs f against every vertex currently on this worker's
// shard, in insertion order (§6 foreachVertex(f)).
func (w *Worker[ID, S]) ForeachVertex(f func(graph.Vertex[ID, S])) {
	w.store.Foreach(f)
}

// AddPatternEdge adds e to its source vertex, exactly like
// AddEdge(e.SourceID, e). The edge is not kept for later: if the source
// vertex is not in this worker's shard, the edge is dropped as AddEdge
// drops it.
func (w *Worker[ID, S]) AddPatternEdge(e graph.Edge[ID]) {
	w.AddEdge(e.SourceID, e)
}

func (w *Worker[ID, S]) sendAddIncomingEdge(e graph.Edge[ID]) {
	cmd := Command[ID, S](func(target *Worker[ID, S]) any {
		target.applyIncomingEdge(e)
		return nil
	})
	if err := w.msgbus.SendToWorkerForVertexId(graph.Request{Command: cmd}, e.TargetID); err != nil {
		w.logger.Warn("worker ", w.index, " addIncomingEdge request failed: ", err)
		return
	}
	w.messagesSent++
}

func (w *Worker[ID, S]) sendRemoveIncomingEdge(sourceID, targetID ID) {
	cmd := Command[ID, S](func(target *Worker[ID, S]) any {
		target.applyRemoveIncomingEdge(targetID, sourceID)
		return nil
	})
	if err := w.msgbus.SendToWorkerForVertexId(graph.Request{Command: cmd}, targetID); err != nil {
		w.logger.Warn("worker ", w.index, " removeIncomingEdge request failed: ", err)
		return
	}
	w.messagesSent++
}

// applyIncomingEdge is evaluated on the target's owning worker; it's a
// no-op for vertex implementations that don't track reverse edges (§9
// "capability set with tagged variants").
func (w *Worker[ID, S]) applyIncomingEdge(e graph.Edge[ID]) {
	v, ok := w.store.Get(e.TargetID)
	if !ok {
		return
	}
	if capable, ok := v.(incomingEdgeVertex[ID]); ok {
		capable.AddIncomingEdge(e)
	}
}

func (w *Worker[ID, S]) applyRemoveIncomingEdge(vertexID, sourceID ID) {
	v, ok := w.store.Get(vertexID)
	if !ok {
		return
	}
	if capable, ok := v.(incomingEdgeVertex[ID]); ok {
		capable.RemoveIncomingEdge(sourceID)
	}
}
