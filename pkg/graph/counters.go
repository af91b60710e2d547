package graph

// Counters are the per-worker counters of §3. All fields are plain
// int64s: a Worker is single-threaded (§5), so no atomics are needed
// here — only the MessageBus's cross-actor counters are atomic.
type Counters struct {
	MessagesReceived        int64
	SignalOperationsExecuted int64
	CollectOperationsExecuted int64
	VerticesAdded            int64
	VerticesRemoved          int64
	EdgesAdded               int64
	EdgesRemoved             int64
	SignalSteps              int64
	CollectSteps             int64
}

// WorkerStatus is published by a worker each time its idle state changes
// (§3); it is not re-sent on a heartbeat interval.
type WorkerStatus struct {
	WorkerID         int
	IsIdle           bool
	IsPaused         bool
	MessagesSent     int64
	MessagesReceived int64
}

// TotalSent is the value the Coordinator compares for "strictly newer"
// status replacement (§4.5).
func (s WorkerStatus) TotalSent() int64 { return s.MessagesSent }

// SentMessagesStats breaks a node's outgoing message count down by
// destination class (§3).
type SentMessagesStats struct {
	ToWorkers     int64
	ToNodes       int64
	ToCoordinator int64
	ToOthers      int64
}

// NodeStatus is the node-level aggregate of §3.
type NodeStatus struct {
	NodeID           int
	Sent             SentMessagesStats
	MessagesReceived int64
}
