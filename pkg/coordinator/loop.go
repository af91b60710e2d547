package coordinator

import (
	"context"

	"github.com/vertexflow/sigcollect/pkg/concurrency"
	"github.com/vertexflow/sigcollect/pkg/graph"
)

// Run drives the coordinator's mailbox loop until ctx is cancelled or the
// mailbox is closed, mirroring worker.Run's shape: every inbound
// WorkerStatus updates the status table, every Request is evaluated
// against this coordinator.
func (c *Coordinator[ID, S]) Run(ctx context.Context) {
	for {
		msg, err := c.mailbox.Receive(ctx)
		switch err {
		case nil:
			c.dispatch(msg)
		case concurrency.ErrMailboxClosed:
			return
		case context.Canceled, context.DeadlineExceeded:
			return
		default:
			c.logger.Severe(err, "coordinator mailbox receive failed")
		}
	}
}

func (c *Coordinator[ID, S]) dispatch(msg any) {
	switch m := msg.(type) {
	case graph.WorkerStatus:
		c.OnWorkerStatus(m)
	case graph.Request:
		c.handleRequest(m)
	default:
		c.logger.Warn("coordinator received unrecognized message of type ", msg)
	}
}

func (c *Coordinator[ID, S]) handleRequest(req graph.Request) {
	cmd, ok := req.Command.(Command[ID, S])
	if !ok {
		c.logger.Warn("coordinator received a Request with an unrecognized command type")
		return
	}
	result := cmd(c)
	if req.Respond != nil {
		req.Respond(result)
	}
}
