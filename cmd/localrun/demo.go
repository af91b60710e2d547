package main

import (
	"fmt"
	"math"
	"sort"

	"github.com/vertexflow/sigcollect/pkg/engine"
	"github.com/vertexflow/sigcollect/pkg/graph"
	"github.com/vertexflow/sigcollect/pkg/logging"
)

// loadDemo seeds one of the two bundled sample graphs through the
// engine's GraphEditor surface; "none" leaves the graph empty for a
// caller that intends to drive it through some other interface instead.
func loadDemo(e *engine.Engine[int, float64], name string, logger logging.Logger) {
	switch name {
	case "pagerank":
		loadPageRankCycle(e)
	case "sssp":
		loadSSSPDag(e)
	case "none", "":
	default:
		logger.Warn("localrun: unknown -demo value ", name, ", leaving the graph empty")
	}
}

// pageRankCycleVertex is a minimal PageRank vertex over a 3-cycle: the
// same rank update szhu33's VertexPageRank.Compute uses, next =
// (1-damping)/N + damping*sum(incoming).
type pageRankCycleVertex struct {
	id          int
	edges       []int
	state       float64
	lastSignal  float64
	damping     float64
	numVertices int
}

func (v *pageRankCycleVertex) ID() int                                       { return v.id }
func (v *pageRankCycleVertex) AfterInitialization(graph.Editor[int, float64]) {}
func (v *pageRankCycleVertex) BeforeRemoval()                                 {}
func (v *pageRankCycleVertex) OutgoingEdgeCount() int                         { return len(v.edges) }
func (v *pageRankCycleVertex) AddOutgoingEdge(e graph.Edge[int]) bool {
	v.edges = append(v.edges, e.TargetID)
	return true
}
func (v *pageRankCycleVertex) RemoveOutgoingEdge(int) bool { return false }

func (v *pageRankCycleVertex) ExecuteSignalOperation(e graph.Editor[int, float64]) {
	if len(v.edges) == 0 {
		return
	}
	outgoing := v.state / float64(len(v.edges))
	for _, target := range v.edges {
		e.SendSignal(outgoing, target, &v.id)
	}
	v.lastSignal = v.state
}

func (v *pageRankCycleVertex) ExecuteCollectOperation(signals []float64, _ graph.Editor[int, float64]) {
	sum := 0.0
	for _, s := range signals {
		sum += s
	}
	v.state = (1-v.damping)/float64(v.numVertices) + v.damping*sum
}

func (v *pageRankCycleVertex) ScoreSignal() float64 { return math.Abs(v.state - v.lastSignal) }
func (v *pageRankCycleVertex) ScoreCollect(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	return 1
}

func (v *pageRankCycleVertex) String() string {
	return fmt.Sprintf("vertex %d: rank %.4f", v.id, v.state)
}

// loadPageRankCycle seeds the three-cycle {1->2, 2->1, 2->3, 3->2} with
// initial rank 0.15 and damping 0.85.
func loadPageRankCycle(e *engine.Engine[int, float64]) {
	vertices := map[int][]int{
		1: {2},
		2: {1, 3},
		3: {2},
	}
	for id, edges := range vertices {
		v := &pageRankCycleVertex{id: id, edges: edges, state: 0.15, damping: 0.85, numVertices: len(vertices)}
		if err := e.Editor.AddVertex(v); err != nil {
			panic(fmt.Sprintf("localrun: seeding pagerank vertex %d: %v", id, err))
		}
	}
}

// sssDagVertex relaxes unit-weight directed edges with a min-based
// Bellman-Ford update; math.Inf(1) means "not yet reached".
type sssDagVertex struct {
	id         int
	edges      []int
	distance   float64
	lastSignal float64
}

func (v *sssDagVertex) ID() int                                       { return v.id }
func (v *sssDagVertex) AfterInitialization(graph.Editor[int, float64]) {}
func (v *sssDagVertex) BeforeRemoval()                                 {}
func (v *sssDagVertex) OutgoingEdgeCount() int                         { return len(v.edges) }
func (v *sssDagVertex) AddOutgoingEdge(e graph.Edge[int]) bool {
	v.edges = append(v.edges, e.TargetID)
	return true
}
func (v *sssDagVertex) RemoveOutgoingEdge(int) bool { return false }

func (v *sssDagVertex) ExecuteSignalOperation(e graph.Editor[int, float64]) {
	for _, target := range v.edges {
		e.SendSignal(v.distance+1, target, &v.id)
	}
	v.lastSignal = v.distance
}

func (v *sssDagVertex) ExecuteCollectOperation(signals []float64, _ graph.Editor[int, float64]) {
	for _, s := range signals {
		if s < v.distance {
			v.distance = s
		}
	}
}

func (v *sssDagVertex) ScoreSignal() float64 {
	if math.IsInf(v.distance, 1) || v.distance >= v.lastSignal {
		return 0
	}
	return 1
}

func (v *sssDagVertex) ScoreCollect(signals []float64) float64 {
	if len(signals) == 0 {
		return 0
	}
	return 1
}

func (v *sssDagVertex) String() string {
	if math.IsInf(v.distance, 1) {
		return fmt.Sprintf("vertex %d: unreached", v.id)
	}
	return fmt.Sprintf("vertex %d: distance %.0f", v.id, v.distance)
}

// loadSSSPDag seeds the six-node DAG {1->2, 2->3, 3->4, 1->5, 4->6,
// 5->6} with source vertex 1 plus an isolated vertex 7, all unit weight.
func loadSSSPDag(e *engine.Engine[int, float64]) {
	edges := map[int][]int{
		1: {2, 5},
		2: {3},
		3: {4},
		4: {6},
		5: {6},
		6: {},
		7: {},
	}
	for id, outgoing := range edges {
		distance := math.Inf(1)
		if id == 1 {
			distance = 0
		}
		v := &sssDagVertex{id: id, edges: outgoing, distance: distance, lastSignal: math.Inf(1)}
		if err := e.Editor.AddVertex(v); err != nil {
			panic(fmt.Sprintf("localrun: seeding sssp vertex %d: %v", id, err))
		}
	}
}

// printResults walks every vertex via the GraphEditor's ForeachVertex
// and prints its final state, sorted by id for deterministic output.
func printResults(e *engine.Engine[int, float64]) {
	type named interface{ String() string }
	var lines []string
	_ = e.Editor.ForeachVertex(func(v graph.Vertex[int, float64]) {
		if n, ok := v.(named); ok {
			lines = append(lines, n.String())
		}
	})
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Println(l)
	}
}
