package worker

import (
	"context"
	"time"

	"github.com/vertexflow/sigcollect/pkg/concurrency"
	"github.com/vertexflow/sigcollect/pkg/graph"
)

// Run drives the mailbox loop until ctx is cancelled or the mailbox is
// closed (§4.3 "Mailbox loop semantics"). It is meant to be the whole
// body of the goroutine that owns this worker — nothing else should
// touch the worker's state concurrently.
func (w *Worker[ID, S]) Run(ctx context.Context) {
	defer w.store.CleanUp()
	for ctx.Err() == nil {
		recvCtx, cancel := context.WithTimeout(ctx, w.receptionIdleTimeout)
		msg, err := w.mailbox.Receive(recvCtx)
		cancel()

		switch err {
		case nil:
			if _, ok := msg.(graph.PoisonPill); ok {
				return
			}
			if _, ok := msg.(graph.Heartbeat); !ok {
				w.counters.MessagesReceived++
			}
			w.dispatch(msg)
			w.handlePauseAndContinue()
			if !w.IsPaused() {
				w.drainWorkOnce()
			}
		case context.DeadlineExceeded:
			w.onReceptionIdle()
		case concurrency.ErrMailboxClosed:
			return
		default:
			w.logger.Severe(err, "worker ", w.index, " mailbox receive failed")
		}
	}
}

// dispatch implements the per-message switch of §4.3: SignalMessage goes
// into toCollect, Request is evaluated against this worker, Heartbeat
// updates the throttle gate, anything else is logged and dropped.
func (w *Worker[ID, S]) dispatch(msg any) {
	wasIdle := w.IsIdle()
	defer func() { w.publishStatusIfIdleChanged(wasIdle) }()

	switch m := msg.(type) {
	case graph.SignalMessage[ID, S]:
		w.store.ToCollect.AddSignal(m)
		w.wakeIfIdle()
	case graph.Request:
		w.handleRequest(m)
		w.wakeIfIdle()
	case graph.Heartbeat:
		w.onHeartbeat(m)
	default:
		w.logger.Warn("worker ", w.index, " received unrecognized message of type ", msg)
	}
}

// onHeartbeat re-evaluates the back-pressure gate against the
// coordinator's latest heartbeat (§4.6) and applies its verdict.
func (w *Worker[ID, S]) onHeartbeat(hb graph.Heartbeat) {
	w.lastHeartbeatAt = time.Unix(0, hb.TimestampNanos)
	w.SetThrottled(w.gate.OnHeartbeat(w.lastHeartbeatAt, time.Now(), hb.GlobalInbox))
}

func (w *Worker[ID, S]) handleRequest(req graph.Request) {
	cmd, ok := req.Command.(Command[ID, S])
	if !ok {
		w.logger.Warn("worker ", w.index, " received a Request with an unrecognized command type")
		return
	}
	result := cmd(w)
	if req.Respond != nil {
		w.messagesSent++
		req.Respond(result)
	}
}

// wakeIfIdle implements "Idle -> Running on any message that adds work";
// Converged behaves the same way since a Converged worker with a fresh
// message is no longer out of work either.
func (w *Worker[ID, S]) wakeIfIdle() {
	if w.machine.CanFire(eventWake) {
		w.machine.Fire(context.Background(), eventWake, nil)
	}
}

// handlePauseAndContinue applies a pending start/pause request recorded by
// RequestContinue/RequestPause, run once per processed message per §4.3.
func (w *Worker[ID, S]) handlePauseAndContinue() {
	wasIdle := w.IsIdle()
	if w.pendingStart {
		w.pendingStart = false
		w.machine.Fire(context.Background(), eventStart, nil)
		w.machine.Fire(context.Background(), eventWake, nil)
	}
	if w.pendingPause {
		w.pendingPause = false
		w.machine.Fire(context.Background(), eventPause, nil)
	}
	w.publishStatusIfIdleChanged(wasIdle)
}

// isConverged reports whether both work queues are empty.
func (w *Worker[ID, S]) isConverged() bool {
	return w.store.ToSignal.IsEmpty() && w.store.ToCollect.IsEmpty()
}

// onReceptionIdle runs on the bounded reception-idle timeout (§4.3
// default 5ms): if the worker is paused, it keeps waiting (a paused
// worker does no compute, so there is nothing to check convergence
// against). Otherwise, if converged, it moves toward Idle once the
// mailbox is also empty; if not converged, it runs one unit of pending
// work instead of waiting for the next message.
func (w *Worker[ID, S]) onReceptionIdle() {
	if w.IsPaused() {
		return
	}

	wasIdle := w.IsIdle()
	if w.isConverged() {
		if w.CurrentState() == StateRunning {
			w.machine.Fire(context.Background(), eventConverge, nil)
		}
		if w.mailbox.Size() == 0 {
			w.machine.Fire(context.Background(), eventGoIdle, nil)
		}
		w.publishStatusIfIdleChanged(wasIdle)
		return
	}
	w.drainWorkOnce()
}

// drainWorkOnce implements the cooperative interleaving of §4.3: while the
// mailbox is empty and the worker is not converged, alternate one
// toSignal entry and one toCollect entry so freshly signaled vertices can
// receive new incoming deliveries promptly, and toCollect's drain yields
// back to message handling as soon as a message arrives.
func (w *Worker[ID, S]) drainWorkOnce() {
	for w.mailbox.Size() == 0 && !w.isConverged() {
		if !w.store.ToSignal.IsEmpty() {
			w.signalOne()
		}
		if w.mailbox.Size() != 0 {
			return
		}
		if !w.store.ToCollect.IsEmpty() {
			w.collectOne()
		}
	}
}

func (w *Worker[ID, S]) signalOne() {
	id, ok := w.store.ToSignal.PopFront()
	if !ok {
		return
	}
	w.signalVertex(id)
}

func (w *Worker[ID, S]) collectOne() {
	id, signals, ok := w.store.ToCollect.PopFront()
	if !ok {
		return
	}
	w.collectVertex(id, signals, true)
}
