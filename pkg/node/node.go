// Package node implements the NodeActor of §4.4: the per-machine aggregate
// that co-hosts several workers, batches their status into one NodeStatus,
// and forwards its workers' WorkerStatus to the Coordinator. Heartbeats
// and node Requests it receives are handled by the node itself, not
// relayed to its workers.
package node

import (
	"github.com/vertexflow/sigcollect/internal/failfast"
	"github.com/vertexflow/sigcollect/pkg/concurrency"
	"github.com/vertexflow/sigcollect/pkg/graph"
	"github.com/vertexflow/sigcollect/pkg/logging"
)

// Command is a function evaluated against a NodeActor by a graph.Request.
type Command func(n *NodeActor) any

// NodeActor co-hosts the workers whose global indices fall in
// [firstWorkerIndex, firstWorkerIndex+len(workerIDs)) (§4.4).
type NodeActor struct {
	index     int
	workerIDs []int
	mailbox   concurrency.Mailbox
	logger    logging.Logger

	workerStatus           []graph.WorkerStatus
	haveWorkerStatus       []bool
	isWorkerIdle           []bool
	forwardedToCoordinator []bool
	numberOfIdleWorkers    int

	sent             graph.SentMessagesStats
	receivedMessages int64

	statusPublisher func(graph.NodeStatus)
	forward         func(graph.WorkerStatus) error
}

// Config bundles a NodeActor's construction parameters.
type Config struct {
	Index           int
	WorkerIDs       []int
	MailboxCapacity int
	Logger          logging.Logger
	StatusPublisher func(graph.NodeStatus)

	// Forward relays a batched-idle WorkerStatus on to the coordinator
	// (§4.4); Run uses it as the forward callback for every dispatched
	// WorkerStatus, so a caller driving HandleMessage directly (as the
	// tests do) may still supply its own forward per call.
	Forward func(graph.WorkerStatus) error
}

// New builds a NodeActor with every hosted worker marked not-yet-idle and
// not-yet-forwarded.
func New(cfg Config) *NodeActor {
	failfast.If(len(cfg.WorkerIDs) > 0, "a node must host at least one worker")
	if cfg.MailboxCapacity <= 0 {
		cfg.MailboxCapacity = 4096
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDefaultLogger()
	}
	n := len(cfg.WorkerIDs)
	return &NodeActor{
		index:                  cfg.Index,
		workerIDs:              cfg.WorkerIDs,
		mailbox:                concurrency.NewBoundedMailbox(cfg.MailboxCapacity),
		logger:                 cfg.Logger,
		workerStatus:           make([]graph.WorkerStatus, n),
		haveWorkerStatus:       make([]bool, n),
		isWorkerIdle:           make([]bool, n),
		forwardedToCoordinator: make([]bool, n),
		statusPublisher:        cfg.StatusPublisher,
		forward:                cfg.Forward,
	}
}

// Mailbox exposes the node's inbound mailbox so the bus can register it.
func (n *NodeActor) Mailbox() concurrency.Mailbox { return n.mailbox }

// Index is this node's position among the graph's nodes.
func (n *NodeActor) Index() int { return n.index }

func (n *NodeActor) localIndex(workerID int) (int, bool) {
	for i, id := range n.workerIDs {
		if id == workerID {
			return i, true
		}
	}
	return 0, false
}

// OnWorkerStatus updates the per-worker arrays and, once every hosted
// worker is idle, forwards every not-yet-forwarded status to the
// coordinator before emitting this node's own NodeStatus — batching the
// update so the coordinator only hears from a node once per convergence
// transition rather than once per worker (§4.4).
func (n *NodeActor) OnWorkerStatus(status graph.WorkerStatus, forward func(graph.WorkerStatus) error) {
	idx, ok := n.localIndex(status.WorkerID)
	if !ok {
		n.logger.Warn("node ", n.index, " received status for unhosted worker ", status.WorkerID)
		return
	}

	wasIdle := n.haveWorkerStatus[idx] && n.isWorkerIdle[idx]
	n.workerStatus[idx] = status
	n.haveWorkerStatus[idx] = true
	n.isWorkerIdle[idx] = status.IsIdle

	if !wasIdle && status.IsIdle {
		n.numberOfIdleWorkers++
	} else if wasIdle && !status.IsIdle {
		n.numberOfIdleWorkers--
		for i := range n.forwardedToCoordinator {
			n.forwardedToCoordinator[i] = false
		}
	}

	if n.numberOfIdleWorkers == len(n.workerIDs) {
		for i, st := range n.workerStatus {
			if n.forwardedToCoordinator[i] || !n.haveWorkerStatus[i] {
				continue
			}
			if err := forward(st); err != nil {
				n.logger.Warn("node ", n.index, " failed forwarding worker status: ", err)
				continue
			}
			n.forwardedToCoordinator[i] = true
		}
		n.emitStatus()
	}
}

// OnHeartbeat emits this node's own NodeStatus (sent-message counts plus
// its received-message counter) in response to a coordinator heartbeat
// (§4.4).
func (n *NodeActor) OnHeartbeat() {
	n.emitStatus()
}

func (n *NodeActor) emitStatus() {
	if n.statusPublisher != nil {
		n.statusPublisher(n.Status())
	}
}

// Status builds this node's NodeStatus snapshot.
func (n *NodeActor) Status() graph.NodeStatus {
	return graph.NodeStatus{
		NodeID:           n.index,
		Sent:             n.sent,
		MessagesReceived: n.receivedMessages,
	}
}

// RecordSent increments this node's own outgoing-message counters, broken
// down by destination class.
func (n *NodeActor) RecordSent(toWorkers, toNodes, toCoordinator, toOthers int64) {
	n.sent.ToWorkers += toWorkers
	n.sent.ToNodes += toNodes
	n.sent.ToCoordinator += toCoordinator
	n.sent.ToOthers += toOthers
}

// HandleMessage dispatches one inbound message, implementing §4.4's three
// cases (WorkerStatus, Heartbeat, Request) plus the bootstrap-message
// exemption: registration commands are tagged Bootstrap=true and their
// receipt is backed out of receivedMessages so they don't contribute to
// the global conservation invariant.
func (n *NodeActor) HandleMessage(msg any, forward func(graph.WorkerStatus) error) {
	n.receivedMessages++
	switch m := msg.(type) {
	case graph.WorkerStatus:
		n.OnWorkerStatus(m, forward)
	case graph.Heartbeat:
		n.OnHeartbeat()
	case graph.Request:
		n.handleRequest(m)
		if m.Bootstrap {
			n.receivedMessages--
		}
	default:
		n.logger.Warn("node ", n.index, " received unrecognized message of type ", msg)
	}
}

func (n *NodeActor) handleRequest(req graph.Request) {
	cmd, ok := req.Command.(Command)
	if !ok {
		n.logger.Warn("node ", n.index, " received a Request with an unrecognized command type")
		return
	}
	result := cmd(n)
	if req.Respond != nil {
		// A nil result is a legitimate "no value" reply; it is delivered
		// as-is rather than suppressed, so a caller waiting on Respond
		// always gets called exactly once (§4.4 "treats null replies as
		// an explicit None").
		req.Respond(result)
	}
}
