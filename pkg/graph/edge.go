package graph

// Edge is a directed relation with a source id, target id, and an
// algorithm-defined payload (e.g. weight). Logically stored inside the
// source vertex; the target worker may additionally keep an incoming-edge
// record for algorithms that need reverse traversal. Ownership belongs to
// the vertex that declares the edge.
type Edge[ID comparable] struct {
	SourceID ID
	TargetID ID
	Payload  any
}

// NewEdge constructs an Edge. Payload may be nil for unweighted graphs.
func NewEdge[ID comparable](sourceID, targetID ID, payload any) Edge[ID] {
	return Edge[ID]{SourceID: sourceID, TargetID: targetID, Payload: payload}
}
