// Package throttle implements the back-pressure gate of §4.6: a worker
// suspends outgoing signal sends when the system-wide in-flight backlog,
// or the freshness of the coordinator's heartbeat, crosses a configured
// threshold.
//
// Adapted from the teacher's three-state (Closed/Open/HalfOpen) circuit
// breaker (see DESIGN.md): this gate only needs two states, because
// re-evaluation happens on every heartbeat tick rather than after a
// blind reset timeout — there is no HalfOpen probe state to guess
// whether the remote side recovered, the next heartbeat just says so.
package throttle

import "time"

// Gate tracks whether a worker should currently suppress outgoing signal
// sends. Not safe for concurrent use: a Gate is owned by exactly one
// worker, which only ever calls it from its own mailbox loop (§5).
type Gate struct {
	numberOfWorkers    int
	inboxThreshold     int
	heartbeatAgeThresh time.Duration
	throttled          bool
}

// New builds a Gate. A zero inboxThreshold or heartbeatAgeThreshold
// disables that half of the check (§6 GraphBuilderConfig default: 0
// disables throttling entirely).
func New(numberOfWorkers, inboxThreshold int, heartbeatAgeThreshold time.Duration) *Gate {
	if numberOfWorkers <= 0 {
		numberOfWorkers = 1
	}
	return &Gate{
		numberOfWorkers:    numberOfWorkers,
		inboxThreshold:     inboxThreshold,
		heartbeatAgeThresh: heartbeatAgeThreshold,
	}
}

// OnHeartbeat re-evaluates the gate against a freshly received heartbeat
// and returns the resulting throttled state. perWorkerBacklog =
// globalInbox / numberOfWorkers; heartbeatAge = now - timestamp. Either
// crossing its threshold keeps (or engages) the gate; both clearing
// releases it (§4.6).
func (g *Gate) OnHeartbeat(timestamp, now time.Time, globalInbox int64) bool {
	perWorkerBacklog := int(globalInbox) / g.numberOfWorkers
	heartbeatAge := now.Sub(timestamp)

	overBacklog := g.inboxThreshold > 0 && perWorkerBacklog > g.inboxThreshold
	overAge := g.heartbeatAgeThresh > 0 && heartbeatAge > g.heartbeatAgeThresh

	g.throttled = overBacklog || overAge
	return g.throttled
}

// IsThrottled reports the gate's current state without re-evaluating it.
func (g *Gate) IsThrottled() bool { return g.throttled }
