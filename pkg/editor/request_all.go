package editor

import (
	"github.com/vertexflow/sigcollect/pkg/bus"
	"github.com/vertexflow/sigcollect/pkg/graph"
	"github.com/vertexflow/sigcollect/pkg/worker"
)

type indexedResult struct {
	index  int
	result any
}

// requestAll sends cmd to every worker and blocks until all
// numberOfWorkers replies have arrived, mirroring the coordinator's own
// runOnEachWorker gather (§4.5) so ForeachVertex can make the same
// all-worker-reply guarantee from outside the actor system.
func requestAll[ID comparable, S any](b *bus.Bus[ID, S], numberOfWorkers int, cmd worker.Command[ID, S]) ([]any, error) {
	replies := make(chan indexedResult, numberOfWorkers)
	for i := 0; i < numberOfWorkers; i++ {
		idx := i
		req := graph.Request{
			Command: cmd,
			Respond: func(result any) { replies <- indexedResult{idx, result} },
		}
		if err := b.SendToWorkerIndex(idx, req); err != nil {
			return nil, err
		}
	}
	results := make([]any, numberOfWorkers)
	for i := 0; i < numberOfWorkers; i++ {
		r := <-replies
		results[r.index] = r.result
	}
	return results, nil
}
