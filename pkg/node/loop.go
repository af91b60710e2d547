package node

import (
	"context"

	"github.com/vertexflow/sigcollect/pkg/concurrency"
)

// Run drives the node's mailbox loop until ctx is cancelled or the
// mailbox is closed, mirroring worker.Run's and coordinator.Run's shape.
// Every inbound message is handed to HandleMessage with the forward
// callback fixed at construction time (Config.Forward).
func (n *NodeActor) Run(ctx context.Context) {
	for {
		msg, err := n.mailbox.Receive(ctx)
		switch err {
		case nil:
			n.HandleMessage(msg, n.forward)
		case concurrency.ErrMailboxClosed:
			return
		case context.Canceled, context.DeadlineExceeded:
			return
		default:
			n.logger.Severe(err, "node ", n.index, " mailbox receive failed")
		}
	}
}
