package bus

import (
	"fmt"
	"sync/atomic"

	"github.com/vertexflow/sigcollect/internal/failfast"
	"github.com/vertexflow/sigcollect/pkg/concurrency"
	"github.com/vertexflow/sigcollect/pkg/graph"
)

// BusError is returned for routing failures (unregistered destination,
// not yet initialized).
type BusError struct {
	Code    string
	Message string
}

func (e *BusError) Error() string { return e.Message }

// Stats are the bus's own atomic, per-destination-class counters (§4.2).
// The Sent* counters count every send, heartbeats included; only the
// received count skips sends made with SendToWorkers(msg,
// countAsReceived=false), the call heartbeats use.
type Stats struct {
	SentToWorkers     int64
	SentToNodes       int64
	SentToCoordinator int64
	SentToOthers      int64
	Received          int64
}

// Bus is the MessageBus of §4.2, routing SignalMessage and Request
// envelopes to the worker, node, or coordinator mailbox that owns them.
type Bus[ID comparable, S any] struct {
	mapper Mapper[ID]

	workerSinks     []concurrency.Mailbox
	nodeSinks       []concurrency.Mailbox
	coordinatorSink concurrency.Mailbox

	workersRegistered     int32
	nodesRegistered       int32
	coordinatorRegistered int32

	sentToWorkers     atomic.Int64
	sentToNodes       atomic.Int64
	sentToCoordinator atomic.Int64
	sentToOthers      atomic.Int64
	received          atomic.Int64
}

// New creates a Bus with empty (unregistered) sink slots for
// numberOfWorkers workers and numberOfWorkers/workersPerNode nodes.
func New[ID comparable, S any](numberOfWorkers, workersPerNode int) *Bus[ID, S] {
	mapper := NewMapper[ID](numberOfWorkers, workersPerNode)
	return &Bus[ID, S]{
		mapper:     mapper,
		workerSinks: make([]concurrency.Mailbox, numberOfWorkers),
		nodeSinks:   make([]concurrency.Mailbox, mapper.NumberOfNodes()),
	}
}

// Mapper exposes the bus's routing function (used by the worker to know
// its own index's peers, and by tests).
func (b *Bus[ID, S]) Mapper() Mapper[ID] { return b.mapper }

// RegisterWorker wires a worker's mailbox into the bus at workerIndex.
func (b *Bus[ID, S]) RegisterWorker(workerIndex int, mailbox concurrency.Mailbox) {
	failfast.If(workerIndex >= 0 && workerIndex < len(b.workerSinks), "workerIndex out of range")
	failfast.NotNil(mailbox, "mailbox")
	b.workerSinks[workerIndex] = mailbox
	atomic.AddInt32(&b.workersRegistered, 1)
}

// RegisterNode wires a node's mailbox into the bus at nodeIndex.
func (b *Bus[ID, S]) RegisterNode(nodeIndex int, mailbox concurrency.Mailbox) {
	failfast.If(nodeIndex >= 0 && nodeIndex < len(b.nodeSinks), "nodeIndex out of range")
	failfast.NotNil(mailbox, "mailbox")
	b.nodeSinks[nodeIndex] = mailbox
	atomic.AddInt32(&b.nodesRegistered, 1)
}

// RegisterCoordinator wires the coordinator's mailbox into the bus.
func (b *Bus[ID, S]) RegisterCoordinator(mailbox concurrency.Mailbox) {
	failfast.NotNil(mailbox, "mailbox")
	b.coordinatorSink = mailbox
	atomic.StoreInt32(&b.coordinatorRegistered, 1)
}

// IsInitialized reports whether every worker, every node, and the
// coordinator have been registered.
func (b *Bus[ID, S]) IsInitialized() bool {
	return int(atomic.LoadInt32(&b.workersRegistered)) == len(b.workerSinks) &&
		int(atomic.LoadInt32(&b.nodesRegistered)) == len(b.nodeSinks) &&
		atomic.LoadInt32(&b.coordinatorRegistered) == 1
}

// Stats returns a point-in-time snapshot of the bus's traffic counters.
func (b *Bus[ID, S]) Stats() Stats {
	return Stats{
		SentToWorkers:     b.sentToWorkers.Load(),
		SentToNodes:       b.sentToNodes.Load(),
		SentToCoordinator: b.sentToCoordinator.Load(),
		SentToOthers:      b.sentToOthers.Load(),
		Received:          b.received.Load(),
	}
}

// SendSignal routes payload to the worker owning targetID, wrapping it in
// a SignalMessage (§4.2 sendSignal).
func (b *Bus[ID, S]) SendSignal(payload S, targetID ID, sourceID *ID) error {
	msg := graph.SignalMessage[ID, S]{SourceID: sourceID, TargetID: targetID, Payload: payload}
	idx := b.mapper.WorkerIndex(targetID)
	return b.sendToWorker(idx, msg, true)
}

// SendSignalMessage routes an already-built SignalMessage, used by the
// bulk variant and by cross-node relays that deserialize a wire envelope
// straight into a SignalMessage.
func (b *Bus[ID, S]) SendSignalMessage(msg graph.SignalMessage[ID, S]) error {
	idx := b.mapper.WorkerIndex(msg.TargetID)
	return b.sendToWorker(idx, msg, true)
}

// SendToWorkerForVertexId routes a Request to the worker owning id
// (§4.2 sendToWorkerForVertexId).
func (b *Bus[ID, S]) SendToWorkerForVertexId(req graph.Request, id ID) error {
	idx := b.mapper.WorkerIndex(id)
	return b.sendToWorker(idx, req, true)
}

// SendToWorkerIndex routes a Request or SignalMessage directly to a known
// worker index, bypassing the mapper (used for cross-node relay, where the
// index already traveled on the wire).
func (b *Bus[ID, S]) SendToWorkerIndex(idx int, msg any) error {
	return b.sendToWorker(idx, msg, true)
}

func (b *Bus[ID, S]) sendToWorker(idx int, msg any, countAsReceived bool) error {
	if idx < 0 || idx >= len(b.workerSinks) || b.workerSinks[idx] == nil {
		return &BusError{Code: "UNREGISTERED_WORKER", Message: fmt.Sprintf("worker %d not registered", idx)}
	}
	if err := b.workerSinks[idx].Send(msg); err != nil {
		return err
	}
	b.sentToWorkers.Add(1)
	if countAsReceived {
		b.received.Add(1)
	}
	return nil
}

// SendToWorkers broadcasts msg to every registered worker (§4.2
// sendToWorkers, used for heartbeats). countAsReceived is false for
// heartbeats: the heartbeat payload is exempt from the message
// conservation invariant (§3).
func (b *Bus[ID, S]) SendToWorkers(msg any, countAsReceived bool) error {
	for idx, sink := range b.workerSinks {
		if sink == nil {
			return &BusError{Code: "UNREGISTERED_WORKER", Message: fmt.Sprintf("worker %d not registered", idx)}
		}
		if err := sink.Send(msg); err != nil {
			return err
		}
		b.sentToWorkers.Add(1)
		if countAsReceived {
			b.received.Add(1)
		}
	}
	return nil
}

// SendToNode routes msg to the node at nodeIndex (used by workers
// forwarding status to their hosting NodeActor).
func (b *Bus[ID, S]) SendToNode(nodeIndex int, msg any) error {
	if nodeIndex < 0 || nodeIndex >= len(b.nodeSinks) || b.nodeSinks[nodeIndex] == nil {
		return &BusError{Code: "UNREGISTERED_NODE", Message: fmt.Sprintf("node %d not registered", nodeIndex)}
	}
	if err := b.nodeSinks[nodeIndex].Send(msg); err != nil {
		return err
	}
	b.sentToNodes.Add(1)
	b.received.Add(1)
	return nil
}

// SendToNodes broadcasts msg to every registered node (used for the
// coordinator's heartbeat, which both workers and nodes observe —
// §4.4 "On Heartbeat from coordinator: emit NodeStatus"). As with
// SendToWorkers, countAsReceived is false for heartbeats, which are
// exempt from the message conservation invariant (§3).
func (b *Bus[ID, S]) SendToNodes(msg any, countAsReceived bool) error {
	for idx, sink := range b.nodeSinks {
		if sink == nil {
			return &BusError{Code: "UNREGISTERED_NODE", Message: fmt.Sprintf("node %d not registered", idx)}
		}
		if err := sink.Send(msg); err != nil {
			return err
		}
		b.sentToNodes.Add(1)
		if countAsReceived {
			b.received.Add(1)
		}
	}
	return nil
}

// SendToCoordinator routes msg to the coordinator sink (§4.2
// sendToCoordinator).
func (b *Bus[ID, S]) SendToCoordinator(msg any) error {
	if b.coordinatorSink == nil {
		return &BusError{Code: "UNREGISTERED_COORDINATOR", Message: "coordinator not registered"}
	}
	if err := b.coordinatorSink.Send(msg); err != nil {
		return err
	}
	b.sentToCoordinator.Add(1)
	b.received.Add(1)
	return nil
}

// WorkerIndexOf is a convenience wrapper around the mapper, exposed so
// callers that only have a Bus (not the Mapper directly) can route.
func (b *Bus[ID, S]) WorkerIndexOf(id ID) int {
	return b.mapper.WorkerIndex(id)
}

// NodeIndexOf returns the node index hosting workerIndex.
func (b *Bus[ID, S]) NodeIndexOf(workerIndex int) int {
	return b.mapper.NodeIndex(workerIndex)
}
