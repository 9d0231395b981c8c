// Package algorithms implements the successive shortest augmenting path
// solver over a network.Network: the Bellman-Ford oracle, the unit push
// loop and the conservation checks run in verification mode.
package algorithms

import (
	"slices"

	"lottery/services/solver-svc/internal/network"
)

// =============================================================================
// Bellman-Ford Oracle
// =============================================================================
//
// The oracle computes shortest paths from the source over the residual graph.
// Costs may be negative (advised choices of the flat tiers, and every
// residual arc), which rules out Dijkstra without potentials.
//
// Time Complexity: O(V * E)
// Space Complexity: O(1) beyond the network scratch vectors
//
// Algorithm:
//   1. distance = Infinity, parent = NoParent everywhere, distance[source] = 0
//   2. Up to V passes, nodes in index order, neighbors in insertion order:
//      - forward arc u→v with flow < capacity relaxes with cost(u, v)
//      - residual arc u→v with flow(v, u) > 0 relaxes with -cost(v, u)
//      A pass without updates ends the search.
//   3. If V passes did not converge, one more pass looks for an arc that
//      still relaxes. Its head leads into a negative cycle through parent.
//
// Ties keep the first relaxation, so the insertion order of arcs decides
// between equal cost paths and the result is reproducible.
// =============================================================================

// OracleResult is the outcome of one oracle call.
type OracleResult struct {
	// Distance is the cost of the shortest path to the sink, network.Infinity
	// when the sink is unreachable, network.NegativeInfinity on a negative cycle.
	Distance int64

	// Node is the sink, or a node on the negative cycle.
	Node int

	// Cycle lists the nodes of the negative cycle in arc order, ending at Node.
	Cycle []int

	// Passes is the number of relaxation passes run, detection pass included.
	Passes int
}

// Converged reports that no augmenting path is left.
func (r OracleResult) Converged() bool {
	return r.Distance == network.Infinity
}

// HasNegativeCycle reports that the residual graph contains a negative cycle.
func (r OracleResult) HasNegativeCycle() bool {
	return r.Distance == network.NegativeInfinity
}

// BellmanFord runs the oracle. It overwrites the distance and parent
// vectors of net and leaves flows untouched.
func BellmanFord(net *network.Network) OracleResult {
	net.ResetScratch()
	net.SetDistance(net.Source(), 0)

	n := net.NumNodes()
	res := OracleResult{Node: net.Sink()}

	for res.Passes < n {
		res.Passes++
		if relaxPass(net, false) < 0 {
			res.Distance = net.Distance(net.Sink())
			return res
		}
	}

	// V passes without convergence: only a negative cycle keeps relaxing
	res.Passes++
	v := relaxPass(net, true)
	if v < 0 {
		res.Distance = net.Distance(net.Sink())
		return res
	}

	res.Distance = network.NegativeInfinity
	res.Node, res.Cycle = extractCycle(net, v)
	return res
}

// relaxPass relaxes every arc once and returns the head of the first
// relaxed arc, or -1. With stopAtFirst it returns right after that arc.
func relaxPass(net *network.Network, stopAtFirst bool) int {
	first := -1
	for u := 0; u < net.NumNodes(); u++ {
		if net.Distance(u) == network.Infinity {
			continue
		}
		for _, v := range net.Neighbors(u) {
			if !relax(net, u, v) {
				continue
			}
			if first < 0 {
				first = v
			}
			if stopAtFirst {
				return first
			}
		}
	}
	return first
}

// relax tries the forward and the residual arc from u to v.
func relax(net *network.Network, u, v int) bool {
	du := net.Distance(u)
	updated := false

	if net.CanFlow(u, v) {
		if d := du + net.Cost(u, v); d < net.Distance(v) {
			net.SetDistance(v, d)
			net.SetParent(v, u)
			updated = true
		}
	}

	if net.Flow(v, u) > 0 {
		if d := du - net.Cost(v, u); d < net.Distance(v) {
			net.SetDistance(v, d)
			net.SetParent(v, u)
			updated = true
		}
	}

	return updated
}

// extractCycle walks V parent steps back from v to land on the cycle, then
// collects cycle nodes until one repeats.
func extractCycle(net *network.Network, v int) (int, []int) {
	for i := 0; i < net.NumNodes(); i++ {
		p := net.Parent(v)
		if p == network.NoParent {
			break
		}
		v = p
	}

	entry := v
	cycle := []int{entry}
	seen := map[int]bool{entry: true}
	for cur := net.Parent(entry); cur != network.NoParent && !seen[cur]; cur = net.Parent(cur) {
		seen[cur] = true
		cycle = append(cycle, cur)
	}

	slices.Reverse(cycle)
	return entry, cycle
}
