package bus

import "github.com/vertexflow/sigcollect/pkg/graph"

// BulkSender batches outgoing signals per destination worker and flushes
// once a destination's buffer reaches flushSize, amortizing cross-node
// relay overhead (§4.2 "bulk variant"). The delivery contract — at most
// once while both ends are up — is identical to calling SendSignal
// directly; BulkSender only changes when bytes actually leave the worker.
type BulkSender[ID comparable, S any] struct {
	bus       *Bus[ID, S]
	flushSize int
	pending   map[int][]graph.SignalMessage[ID, S]
}

// NewBulkSender creates a BulkSender over bus with the given per-worker
// flush size. A flushSize of 1 degenerates to unbatched sends.
func NewBulkSender[ID comparable, S any](b *Bus[ID, S], flushSize int) *BulkSender[ID, S] {
	if flushSize < 1 {
		flushSize = 1
	}
	return &BulkSender[ID, S]{
		bus:       b,
		flushSize: flushSize,
		pending:   make(map[int][]graph.SignalMessage[ID, S]),
	}
}

// Enqueue buffers a signal for targetID's owning worker, flushing that
// worker's batch immediately if it has reached flushSize.
func (s *BulkSender[ID, S]) Enqueue(payload S, targetID ID, sourceID *ID) error {
	idx := s.bus.WorkerIndexOf(targetID)
	msg := graph.SignalMessage[ID, S]{SourceID: sourceID, TargetID: targetID, Payload: payload}
	s.pending[idx] = append(s.pending[idx], msg)
	if len(s.pending[idx]) >= s.flushSize {
		return s.flushWorker(idx)
	}
	return nil
}

// Flush sends every buffered batch regardless of size, emptying all
// pending queues. Call at the end of a signal step so nothing is left
// stranded in the sender across supersteps.
func (s *BulkSender[ID, S]) Flush() error {
	for idx := range s.pending {
		if err := s.flushWorker(idx); err != nil {
			return err
		}
	}
	return nil
}

func (s *BulkSender[ID, S]) flushWorker(idx int) error {
	batch := s.pending[idx]
	if len(batch) == 0 {
		return nil
	}
	for _, msg := range batch {
		if err := s.bus.sendToWorker(idx, msg, true); err != nil {
			return err
		}
	}
	delete(s.pending, idx)
	return nil
}

// PendingCount returns the number of signals buffered but not yet flushed
// across all destinations. Only tests call it; the heartbeat's globalInbox
// does not include these buffered signals.
func (s *BulkSender[ID, S]) PendingCount() int {
	total := 0
	for _, batch := range s.pending {
		total += len(batch)
	}
	return total
}
