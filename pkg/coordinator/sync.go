package coordinator

import (
	"context"
	"time"

	"github.com/vertexflow/sigcollect/pkg/graph"
	"github.com/vertexflow/sigcollect/pkg/worker"
)

type indexedResult struct {
	index  int
	result any
}

// runOnEachWorker sends cmd to every worker via the bus and blocks until
// all numberOfWorkers replies have arrived, returning them ordered by
// worker index (§4.5 "Ask every worker to run X, wait for replies").
// Each Respond closure only ever writes to replies from inside that
// worker's own goroutine, so the channel is the one cross-goroutine
// primitive this crosses (§5).
func runOnEachWorker[ID comparable, S any](b interface {
	SendToWorkerIndex(idx int, msg any) error
}, numberOfWorkers int, cmd worker.Command[ID, S]) []any {
	replies := make(chan indexedResult, numberOfWorkers)
	for i := 0; i < numberOfWorkers; i++ {
		idx := i
		req := graph.Request{
			Command: cmd,
			Respond: func(result any) { replies <- indexedResult{idx, result} },
		}
		if err := b.SendToWorkerIndex(idx, req); err != nil {
			replies <- indexedResult{idx, err}
		}
	}
	results := make([]any, numberOfWorkers)
	for i := 0; i < numberOfWorkers; i++ {
		r := <-replies
		results[r.index] = r.result
	}
	return results
}

// RunSynchronous drives the synchronous execution protocol of §4.5:
// alternate a full signalStep and collectStep across every worker until
// every worker reports toSignal empty, or a stepsLimit/timeLimit/
// globalTerminationCondition cuts it short. It also serves
// OptimizedAsynchronous mode, which drives the same superstep loop.
func (c *Coordinator[ID, S]) RunSynchronous(ctx context.Context) (TerminationReason, error) {
	c.startedAt = time.Now()
	for {
		select {
		case <-ctx.Done():
			return Paused, ctx.Err()
		default:
		}

		if c.stepsLimit > 0 && c.steps >= c.stepsLimit {
			return TimeLimitReached, nil
		}
		if c.timeLimit > 0 && time.Since(c.startedAt) >= c.timeLimit {
			return TimeLimitReached, nil
		}

		signalCmd := worker.Command[ID, S](func(w *worker.Worker[ID, S]) any {
			w.SignalStep()
			return nil
		})
		runOnEachWorker[ID, S](c.bus, c.numberOfWorkers, signalCmd)

		collectCmd := worker.Command[ID, S](func(w *worker.Worker[ID, S]) any {
			return w.CollectStep()
		})
		results := runOnEachWorker[ID, S](c.bus, c.numberOfWorkers, collectCmd)
		c.steps++

		allSignalEmpty := true
		for _, r := range results {
			if empty, ok := r.(bool); !ok || !empty {
				allSignalEmpty = false
				break
			}
		}
		if allSignalEmpty {
			return Converged, nil
		}
		if c.globalTerminationCondition != nil && c.globalTerminationCondition() {
			return GlobalConstraintMet, nil
		}
	}
}

// Aggregate folds op across every worker's partial result (§4.3
// "Aggregation"), combining worker-local partials with op.Aggregate —
// the same associative combinator each worker used internally.
func Aggregate[ID comparable, S any, R any](c *Coordinator[ID, S], op graph.AggregationOp[ID, S, R]) R {
	cmd := worker.Command[ID, S](func(w *worker.Worker[ID, S]) any {
		return worker.Aggregate[ID, S, R](w, op)
	})
	results := runOnEachWorker[ID, S](c.bus, c.numberOfWorkers, cmd)
	acc := op.Neutral()
	for _, r := range results {
		if partial, ok := r.(R); ok {
			acc = op.Aggregate(acc, partial)
		}
	}
	return acc
}
