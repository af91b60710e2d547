package graph

// Request carries a function-like command from the coordinator or
// another worker, to be evaluated on the receiving worker (§3).
//
// Command is deliberately typed as `any`: a worker Request's Command
// closes over a *worker.Worker, a node Request's Command closes over a
// *node.NodeActor. The bus never inspects Command — only routes the
// envelope to the right mailbox; delivering a reply, if one is wanted,
// is the sender's own problem, not the bus's, which is why the reply
// path is a closure rather than a string address: this engine has no
// address namespace beyond worker/node/coordinator indices, and a
// closure over the caller's own reply channel needs none.
type Request struct {
	// Command is evaluated as Command(receiver) by whoever drains the
	// mailbox; its concrete function type is owned by the caller's
	// package (worker.Command, node.Command, ...).
	Command any

	// Respond, if non-nil, is called with Command's result after
	// evaluation. A fire-and-forget Request leaves this nil.
	Respond func(result any)

	// Bootstrap marks a Request used purely for wiring (registerWorker,
	// registerNode, registerCoordinator): its receipt is backed out of
	// the receiver's receivedMessages counter so mutual registration
	// fanout doesn't contribute to the global conservation invariant
	// (§4.4, §4.5's initializationMessages term).
	Bootstrap bool
}
