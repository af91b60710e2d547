package coordinator

import (
	"context"
	"time"

	"github.com/vertexflow/sigcollect/pkg/graph"
)

// Heartbeat broadcasts the current wall-clock timestamp and global inbox
// size to every worker and node (§4.5). Heartbeats are exempt from the
// message conservation invariant, matching SendToWorkers/SendToNodes's
// countAsReceived=false.
func (c *Coordinator[ID, S]) Heartbeat() error {
	hb := graph.Heartbeat{
		TimestampNanos: time.Now().UnixNano(),
		GlobalInbox:    c.globalInboxSize(),
	}
	if err := c.bus.SendToWorkers(hb, false); err != nil {
		return err
	}
	return c.bus.SendToNodes(hb, false)
}

// RunHeartbeatLoop ticks every heartbeatInterval until ctx is cancelled,
// delivering each tick as a Request through the coordinator's own
// mailbox rather than calling Heartbeat directly. It runs in its own
// goroutine alongside Run, the coordinator's own mailbox loop; reading
// c.workerStatus (via globalInboxSize) from that ticker goroutine while
// Run's dispatch writes it from OnWorkerStatus would be a data race, so
// the ticker only ever enqueues — the actual broadcast, and every read
// of workerStatus it requires, runs on Run's goroutine like every other
// field access (§5 "single Run-loop owns all fields").
func (c *Coordinator[ID, S]) RunHeartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(c.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick := graph.Request{Command: Command[ID, S](func(co *Coordinator[ID, S]) any {
				if err := co.Heartbeat(); err != nil {
					co.logger.Warn("coordinator heartbeat broadcast failed: ", err)
				}
				return nil
			})}
			if err := c.mailbox.Send(tick); err != nil {
				c.logger.Warn("coordinator heartbeat tick dropped: ", err)
			}
		}
	}
}
