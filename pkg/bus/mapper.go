// Package bus implements the MessageBus of §4.2: vertex-to-worker
// routing, per-worker/per-node/coordinator sinks, and the bus's own atomic
// send/receive counters. The Coordinator's global accounting (§4.5) does
// not read these; it sums the workers' WorkerStatus counts.
package bus

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/vertexflow/sigcollect/internal/failfast"
)

// Mapper computes worker and node ownership for a vertex id: a vertex
// hashes to exactly one worker for the lifetime of the graph (§3 Invariants).
//
// blake2b gives a well-distributed, allocation-free-per-call hash over the
// id's string form; any ID whose fmt.Sprint is stable for the graph's
// lifetime (ints, strings, uuids) routes deterministically.
type Mapper[ID comparable] struct {
	numberOfWorkers int
	workersPerNode  int
}

// NewMapper builds a Mapper. Panics (fail-fast, per §7) if either count
// is non-positive or numberOfWorkers is not a multiple of workersPerNode.
func NewMapper[ID comparable](numberOfWorkers, workersPerNode int) Mapper[ID] {
	failfast.If(numberOfWorkers > 0, "numberOfWorkers must be > 0")
	failfast.If(workersPerNode > 0, "workersPerNode must be > 0")
	failfast.If(numberOfWorkers%workersPerNode == 0, "numberOfWorkers must be a multiple of workersPerNode")
	return Mapper[ID]{numberOfWorkers: numberOfWorkers, workersPerNode: workersPerNode}
}

// WorkerIndex returns hash(id) mod numberOfWorkers.
func (m Mapper[ID]) WorkerIndex(id ID) int {
	sum := blake2b.Sum256([]byte(fmt.Sprint(id)))
	h := binary.BigEndian.Uint64(sum[:8])
	return int(h % uint64(m.numberOfWorkers))
}

// NodeIndex returns workerIndex / workersPerNode.
func (m Mapper[ID]) NodeIndex(workerIndex int) int {
	return workerIndex / m.workersPerNode
}

// NumberOfWorkers returns the configured worker count.
func (m Mapper[ID]) NumberOfWorkers() int { return m.numberOfWorkers }

// NumberOfNodes returns numberOfWorkers / workersPerNode.
func (m Mapper[ID]) NumberOfNodes() int { return m.numberOfWorkers / m.workersPerNode }
