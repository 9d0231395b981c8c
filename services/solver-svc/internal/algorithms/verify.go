package algorithms

import (
	"fmt"

	"lottery/pkg/apperror"
	"lottery/services/solver-svc/internal/network"
)

// Neighbor lists repeat a node when arcs exist in both directions between
// two nodes. The checks below visit each pair once, marking visited
// neighbors with the current node index plus one.

// RecomputeCost sums flow×cost over every arc with positive flow,
// independently of the cost accumulated by Solve.
func RecomputeCost(net *network.Network) int64 {
	var total int64
	mark := make([]int, net.NumNodes())

	for u := 0; u < net.NumNodes(); u++ {
		for _, v := range net.Neighbors(u) {
			if mark[v] == u+1 {
				continue
			}
			mark[v] = u + 1

			if f := net.Flow(u, v); f > 0 {
				total += f * net.Cost(u, v)
			}
		}
	}
	return total
}

// CheckConservation verifies every interior node 1..sink-1: inflow equals
// outflow, and no arc carries negative flow or flow above its capacity.
func CheckConservation(net *network.Network) error {
	mark := make([]int, net.NumNodes())

	for node := 1; node < net.Sink(); node++ {
		var in, out int64
		for _, w := range net.Neighbors(node) {
			if mark[w] == node+1 {
				continue
			}
			mark[w] = node + 1

			f := net.Flow(node, w)
			if f < 0 || f > net.Capacity(node, w) {
				return network.NewFatal(apperror.CodeConservationViolation,
					fmt.Sprintf("arc (%d, %d) carries flow %d outside [0, %d]", node, w, f, net.Capacity(node, w)), net).
					WithDetails("node", node)
			}
			out += f
			in += net.Flow(w, node)
		}
		if in != out {
			return network.NewFatal(apperror.CodeConservationViolation,
				fmt.Sprintf("node %d: inflow %d, outflow %d", node, in, out), net).
				WithDetails("node", node).
				WithDetails("inflow", in).
				WithDetails("outflow", out)
		}
	}
	return nil
}
