package graph

// Heartbeat is broadcast by the Coordinator to every worker and node at
// heartbeatInterval (default 200ms). Workers use it for throttling
// (§4.6); nodes respond to it by emitting their own NodeStatus (§4.4).
type Heartbeat struct {
	TimestampNanos int64
	GlobalInbox    int64
}
