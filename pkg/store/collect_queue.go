package store

import "github.com/vertexflow/sigcollect/pkg/graph"

// CollectQueue is toCollect: a mapping from vertex id to its buffered,
// not-yet-collected signals, in append order (§4.1).
type CollectQueue[ID comparable, S any] struct {
	order   []ID
	signals map[ID][]S
}

func newCollectQueue[ID comparable, S any]() *CollectQueue[ID, S] {
	return &CollectQueue[ID, S]{signals: make(map[ID][]S)}
}

// AddSignal appends sig to toCollect[sig.TargetID], creating the entry if
// it did not already exist.
func (q *CollectQueue[ID, S]) AddSignal(sig graph.SignalMessage[ID, S]) {
	if _, exists := q.signals[sig.TargetID]; !exists {
		q.order = append(q.order, sig.TargetID)
	}
	q.signals[sig.TargetID] = append(q.signals[sig.TargetID], sig.Payload)
}

// AddVertex marks id for collect with an empty signal list — used when
// edge topology changes warrant re-evaluation without a real signal.
func (q *CollectQueue[ID, S]) AddVertex(id ID) {
	if _, exists := q.signals[id]; !exists {
		q.signals[id] = nil
		q.order = append(q.order, id)
	}
}

// Len reports how many distinct vertex ids have pending collect entries.
func (q *CollectQueue[ID, S]) Len() int {
	return len(q.order)
}

// IsEmpty reports whether no vertex has pending collect entries.
func (q *CollectQueue[ID, S]) IsEmpty() bool {
	return len(q.order) == 0
}

// Has reports whether id currently has a pending collect entry.
func (q *CollectQueue[ID, S]) Has(id ID) bool {
	_, ok := q.signals[id]
	return ok
}

// Foreach drains entries in insertion order, invoking f(id, signals) for
// each. If removeAfterProcessing is true, an entry is removed before f
// runs for it (so f may re-add it). breakCondition, if non-nil, is
// re-checked between entries; when it returns true the drain stops early
// so the caller can yield back to its mailbox loop (§4.3).
func (q *CollectQueue[ID, S]) Foreach(f func(id ID, signals []S), removeAfterProcessing bool, breakCondition func() bool) {
	pending := q.order
	q.order = nil
	for i, id := range pending {
		if breakCondition != nil && breakCondition() {
			q.order = append(q.order, pending[i:]...)
			return
		}
		signals := q.signals[id]
		if removeAfterProcessing {
			delete(q.signals, id)
		} else {
			q.order = append(q.order, id)
		}
		f(id, signals)
	}
}

// PopFront removes and returns the oldest pending (id, signals) pair. ok
// is false if the queue was empty. Used by the worker's one-entry-at-a-time
// asynchronous drain (§4.3).
func (q *CollectQueue[ID, S]) PopFront() (id ID, signals []S, ok bool) {
	if len(q.order) == 0 {
		return id, nil, false
	}
	id = q.order[0]
	q.order = q.order[1:]
	signals = q.signals[id]
	delete(q.signals, id)
	return id, signals, true
}
