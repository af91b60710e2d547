// Package store implements the per-worker VertexStore of §4.1: keyed
// vertex storage plus the two work-scheduling structures toSignal and
// toCollect. All operations assume single-threaded access from the
// owning worker — no internal locking, per §5.
package store

import (
	"github.com/vertexflow/sigcollect/pkg/graph"
)

// VertexStore owns the vertices of one shard plus its toSignal/toCollect
// work queues. Iteration order is insertion order, for deterministic
// tests (§4.1).
type VertexStore[ID comparable, S any] struct {
	vertices map[ID]graph.Vertex[ID, S]
	order    []ID // insertion order, for foreach determinism

	ToSignal  *SignalQueue[ID]
	ToCollect *CollectQueue[ID, S]
}

// New creates an empty VertexStore.
func New[ID comparable, S any]() *VertexStore[ID, S] {
	return &VertexStore[ID, S]{
		vertices:  make(map[ID]graph.Vertex[ID, S]),
		ToSignal:  newSignalQueue[ID](),
		ToCollect: newCollectQueue[ID, S](),
	}
}

// Put inserts v if absent. Returns false if a vertex with the same id is
// already present (the caller should treat this as "not added").
func (s *VertexStore[ID, S]) Put(v graph.Vertex[ID, S]) bool {
	id := v.ID()
	if _, exists := s.vertices[id]; exists {
		return false
	}
	s.vertices[id] = v
	s.order = append(s.order, id)
	return true
}

// Get returns the vertex for id, or (zero, false) if absent.
func (s *VertexStore[ID, S]) Get(id ID) (graph.Vertex[ID, S], bool) {
	v, ok := s.vertices[id]
	return v, ok
}

// Remove drops id from the store. The caller is responsible for calling
// BeforeRemoval on the vertex first.
func (s *VertexStore[ID, S]) Remove(id ID) {
	if _, ok := s.vertices[id]; !ok {
		return
	}
	delete(s.vertices, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Size returns the number of vertices currently owned by this store.
func (s *VertexStore[ID, S]) Size() int {
	return len(s.vertices)
}

// UpdateStateOfVertex is a hook allowing an out-of-core storage
// implementation to persist post-mutation vertex state. The in-memory
// store is a no-op, per §4.1.
func (s *VertexStore[ID, S]) UpdateStateOfVertex(v graph.Vertex[ID, S]) {
	_ = v
}

// Foreach iterates all owned vertices in insertion order. f must not
// mutate the store (add/remove) while iterating.
func (s *VertexStore[ID, S]) Foreach(f func(graph.Vertex[ID, S])) {
	for _, id := range s.order {
		if v, ok := s.vertices[id]; ok {
			f(v)
		}
	}
}

// CleanUp releases this shard: BeforeRemoval runs on every owned vertex,
// then the store and its work queues are emptied. Called on every exit
// path of a worker, including a PoisonPill shutdown (§9 "scoped
// shutdown... treat it as a guaranteed-release resource tied to worker
// lifetime").
func (s *VertexStore[ID, S]) CleanUp() {
	for _, id := range s.order {
		if v, ok := s.vertices[id]; ok {
			v.BeforeRemoval()
		}
	}
	s.vertices = make(map[ID]graph.Vertex[ID, S])
	s.order = nil
	s.ToSignal = newSignalQueue[ID]()
	s.ToCollect = newCollectQueue[ID, S]()
}
