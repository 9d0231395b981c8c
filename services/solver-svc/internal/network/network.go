// Package network holds the dense flow network the lottery solver works on:
// per-arc cost, capacity and flow, the shortest-path scratch vectors, and
// per-node neighbor lists in insertion order.
package network

import (
	"math"

	"lottery/pkg/apperror"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// Infinity is the distance of a node the oracle has not reached.
	// A quarter of MaxInt64 leaves room for adding any arc cost without overflow.
	Infinity int64 = math.MaxInt64 / 4

	// NegativeInfinity is the distance reported together with a negative cycle.
	NegativeInfinity = -Infinity

	// NoParent marks a node without a predecessor on the current shortest path tree.
	NoParent = -1

	// Unbounded is the capacity of arcs that never limit the flow.
	Unbounded int64 = math.MaxInt32
)

// CostCeiling bounds the arc costs of a network with numNodes nodes, and the
// cost of a source to sink path the cost model prices. A simple path has
// fewer than numNodes arcs, so shortest path distances stay below Infinity.
func CostCeiling(numNodes int) int64 {
	if numNodes < 2 {
		numNodes = 2
	}
	return Infinity / int64(numNodes)
}

// =============================================================================
// Network
// =============================================================================

// Network is a directed flow network with source 0 and sink NumNodes-1.
//
// Capacities and costs are set once by the encoder. During a solve only flow,
// distance and parent change. A residual arc (v, u) is not stored: its
// capacity is flow(u, v) and its cost is read as -cost(u, v).
type Network struct {
	numNodes int
	source   int
	sink     int

	cost     *Matrix
	capacity *Matrix
	flow     *Matrix

	distance []int64
	parent   []int

	neighbors [][]int
	arcs      int
}

// New allocates a network with numNodes nodes, at least source and sink.
func New(numNodes int) (*Network, error) {
	if numNodes < 2 {
		return nil, apperror.Newf(apperror.CodeInvalidArgument, "network needs at least 2 nodes, got %d", numNodes)
	}

	n := &Network{
		numNodes:  numNodes,
		source:    0,
		sink:      numNodes - 1,
		cost:      NewMatrix(numNodes),
		capacity:  NewMatrix(numNodes),
		flow:      NewMatrix(numNodes),
		distance:  make([]int64, numNodes),
		parent:    make([]int, numNodes),
		neighbors: make([][]int, numNodes),
	}
	n.ResetScratch()
	return n, nil
}

// NumNodes returns the number of nodes.
func (n *Network) NumNodes() int { return n.numNodes }

// Source returns the source node index.
func (n *Network) Source() int { return n.source }

// Sink returns the sink node index.
func (n *Network) Sink() int { return n.sink }

// Arcs returns the number of forward arcs added with AddEdge.
func (n *Network) Arcs() int { return n.arcs }

// AddEdge adds the forward arc u→v with the given cost and capacity and zero
// flow. v becomes a forward neighbor of u and u a residual neighbor of v.
func (n *Network) AddEdge(u, v int, cost, capacity int64) {
	n.capacity.Set(u, v, capacity)
	n.cost.Set(u, v, cost)

	n.neighbors[u] = append(n.neighbors[u], v)
	n.neighbors[v] = append(n.neighbors[v], u)
	n.arcs++
}

// Neighbors returns forward and residual neighbors of u in insertion order.
// The slice must not be modified.
func (n *Network) Neighbors(u int) []int {
	n.checkNode("Neighbors", u)
	return n.neighbors[u]
}

// Cost returns the stored cost of arc (u, v).
func (n *Network) Cost(u, v int) int64 { return n.cost.At(u, v) }

// SetCost stores the cost of arc (u, v).
func (n *Network) SetCost(u, v int, c int64) { n.cost.Set(u, v, c) }

// Capacity returns the capacity of arc (u, v).
func (n *Network) Capacity(u, v int) int64 { return n.capacity.At(u, v) }

// SetCapacity stores the capacity of arc (u, v).
func (n *Network) SetCapacity(u, v int, c int64) { n.capacity.Set(u, v, c) }

// Flow returns the flow on arc (u, v).
func (n *Network) Flow(u, v int) int64 { return n.flow.At(u, v) }

// SetFlow stores the flow on arc (u, v).
func (n *Network) SetFlow(u, v int, f int64) { n.flow.Set(u, v, f) }

// AddFlow adds d to the flow on arc (u, v).
func (n *Network) AddFlow(u, v int, d int64) { n.flow.Add(u, v, d) }

// CanFlow reports whether arc (u, v) has residual capacity.
func (n *Network) CanFlow(u, v int) bool {
	return n.flow.At(u, v) < n.capacity.At(u, v)
}

// Distance returns the oracle distance of u.
func (n *Network) Distance(u int) int64 {
	n.checkNode("Distance", u)
	return n.distance[u]
}

// SetDistance stores the oracle distance of u.
func (n *Network) SetDistance(u int, d int64) {
	n.checkNode("SetDistance", u)
	n.distance[u] = d
}

// Parent returns the predecessor of u on the shortest path tree.
func (n *Network) Parent(u int) int {
	n.checkNode("Parent", u)
	return n.parent[u]
}

// SetParent stores the predecessor of u.
func (n *Network) SetParent(u, p int) {
	n.checkNode("SetParent", u)
	n.parent[u] = p
}

// ResetScratch sets every distance to Infinity and every parent to NoParent.
func (n *Network) ResetScratch() {
	for i := range n.distance {
		n.distance[i] = Infinity
		n.parent[i] = NoParent
	}
}

func (n *Network) checkNode(op string, u int) {
	if u < 0 || u >= n.numNodes {
		panic(&OutOfRangeError{Op: op, U: u, V: -1, N: n.numNodes})
	}
}
