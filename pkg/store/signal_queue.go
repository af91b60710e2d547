package store

// SignalQueue is toSignal: a set of vertex ids awaiting signal-step, each
// id appearing at most once, processed in insertion order (§4.1).
type SignalQueue[ID comparable] struct {
	order  []ID
	member map[ID]struct{}
}

func newSignalQueue[ID comparable]() *SignalQueue[ID] {
	return &SignalQueue[ID]{member: make(map[ID]struct{})}
}

// Add marks id for signal-step. A no-op if id is already queued.
func (q *SignalQueue[ID]) Add(id ID) {
	if _, ok := q.member[id]; ok {
		return
	}
	q.member[id] = struct{}{}
	q.order = append(q.order, id)
}

// Len reports how many ids are currently queued.
func (q *SignalQueue[ID]) Len() int {
	return len(q.order)
}

// IsEmpty reports whether the queue has no pending ids.
func (q *SignalQueue[ID]) IsEmpty() bool {
	return len(q.order) == 0
}

// Foreach processes queued ids in insertion order. If removeAfterProcessing
// is true, each id is removed from the queue before f is invoked for it —
// so f may safely re-add the same id to signal it again next round.
func (q *SignalQueue[ID]) Foreach(f func(id ID), removeAfterProcessing bool) {
	pending := q.order
	q.order = nil
	for _, id := range pending {
		if removeAfterProcessing {
			delete(q.member, id)
		} else {
			q.order = append(q.order, id)
		}
		f(id)
	}
}

// PopFront removes and returns the oldest queued id. ok is false if the
// queue was empty. Used by the worker's one-entry-at-a-time asynchronous
// drain (§4.3).
func (q *SignalQueue[ID]) PopFront() (id ID, ok bool) {
	if len(q.order) == 0 {
		return id, false
	}
	id = q.order[0]
	q.order = q.order[1:]
	delete(q.member, id)
	return id, true
}
