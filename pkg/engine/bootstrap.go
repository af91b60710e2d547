package engine

import "github.com/vertexflow/sigcollect/pkg/provisioner"

// runBootstrap exercises the registration protocol of §6: mint a token
// per node, redeem it immediately (a single process has no network hop
// between minting and redeeming), and set the nodes-registered gauge
// once every node has registered.
func (e *Engine[ID, S]) runBootstrap(numberOfNodes int) {
	e.provisioner.OnAllReady(func(nodeIDs []int) {
		e.Metrics.UpdateNodesRegistered(len(nodeIDs))
	})

	for i := 0; i < numberOfNodes; i++ {
		token, err := e.provisioner.IssueToken(i)
		if err != nil {
			e.logger.Warn("engine: issuing registration token for node ", i, " failed: ", err)
			continue
		}
		ready := provisioner.NodeReady{NodeID: i, Token: token}
		if err := e.provisioner.Register(ready); err != nil {
			e.logger.Warn("engine: registering node ", i, " failed: ", err)
		}
	}
}
