// Package graph holds the data model of the signal/collect engine: the
// Vertex capability set, directed Edges, SignalMessages, control Requests,
// and the per-vertex/per-worker counters, as described in §3 of the spec.
//
// Types are generic over ID (the vertex identifier type) and S (the
// algorithm-defined Signal payload type) so the engine never needs a
// runtime type assertion to move a signal from one vertex to another.
package graph

// Editor is the capability a Vertex is handed during afterInitialization,
// executeSignalOperation and executeCollectOperation: everything it may do
// to the graph without reaching into worker internals. The concrete
// implementation is the owning *worker.Worker (pkg/worker/editor.go),
// which routes each edit to the worker that owns the vertex.
type Editor[ID comparable, S any] interface {
	SendSignal(payload S, targetID ID, sourceID *ID)
	AddVertex(v Vertex[ID, S])
	AddEdge(sourceID ID, e Edge[ID])
	RemoveVertex(id ID)
	RemoveEdge(sourceID, targetID ID)
}

// Vertex is the capability set of §3: opaque user state keyed by ID,
// exposing the operations the worker drives during signal/collect.
// A vertex is owned by exactly one worker for its entire lifetime.
type Vertex[ID comparable, S any] interface {
	// ID returns the vertex's identifier, stable for its lifetime.
	ID() ID

	// AfterInitialization is called once, immediately after the vertex is
	// added to its owning worker's store.
	AfterInitialization(editor Editor[ID, S])

	// ExecuteSignalOperation emits outgoing signals via editor. Called only
	// when ScoreSignal() > the graph's signalThreshold.
	ExecuteSignalOperation(editor Editor[ID, S])

	// ExecuteCollectOperation folds signals (buffered since the last
	// drain, in insertion order) into new vertex state. Called only when
	// ScoreCollect(signals) > the graph's collectThreshold.
	ExecuteCollectOperation(signals []S, editor Editor[ID, S])

	// ScoreSignal reports how much this vertex wants to signal; compared
	// against signalThreshold.
	ScoreSignal() float64

	// ScoreCollect reports how much the buffered signals warrant a
	// collect; compared against collectThreshold.
	ScoreCollect(signals []S) float64

	// AddOutgoingEdge adds e, stored inside this vertex. Returns false if
	// an edge to the same target already exists.
	AddOutgoingEdge(e Edge[ID]) bool

	// RemoveOutgoingEdge removes the outgoing edge to targetID, if any.
	// Returns false if no such edge existed.
	RemoveOutgoingEdge(targetID ID) bool

	// BeforeRemoval is called immediately before the vertex is removed
	// from its owning worker's store.
	BeforeRemoval()

	// OutgoingEdgeCount returns the number of outgoing edges.
	OutgoingEdgeCount() int
}

// AggregationOp folds a value out of every vertex in the graph (§4.3
// aggregate). Worker-local partial results are combined across workers
// with Aggregate, starting from Neutral.
type AggregationOp[ID comparable, S any, R any] interface {
	Neutral() R
	Extract(v Vertex[ID, S]) R
	Aggregate(a, b R) R
}
