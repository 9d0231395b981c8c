package encoding

import (
	"fmt"

	"lottery/pkg/apperror"
	"lottery/services/solver-svc/internal/network"
)

// CheckStructure verifies the layering of an encoded network:
//
//	source   → persons only
//	person   → its chosen categories and withdraw, or only non-participating
//	           (a dual enrollment person also reaches non-participating)
//	category → its own three tier nodes
//	non-participating, withdraw, tier → sink only
//
// Every participating person must reach withdraw, all costs must be within
// network.CostCeiling for the network size and no flow may be set yet. Arcs
// are read from the neighbor lists; a neighbor with positive capacity is a
// forward arc.
func CheckStructure(net *network.Network, l *Layout) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = network.FromPanic(r, net)
		}
	}()

	if net.NumNodes() != l.NumNodes() {
		return violation(net, fmt.Sprintf("network has %d nodes, layout expects %d", net.NumNodes(), l.NumNodes()))
	}

	ceiling := network.CostCeiling(net.NumNodes())
	for u := 0; u < net.NumNodes(); u++ {
		reachesWithdraw := false

		for _, v := range net.Neighbors(u) {
			if net.Capacity(u, v) <= 0 {
				continue
			}
			if net.Flow(u, v) != 0 {
				return violation(net, fmt.Sprintf("arc %s → %s carries flow before solving", l.Describe(u), l.Describe(v)))
			}
			if c := net.Cost(u, v); c > ceiling || c < -ceiling {
				return violation(net, fmt.Sprintf("arc %s → %s cost %d exceeds the ceiling", l.Describe(u), l.Describe(v), c))
			}
			if !arcAllowed(l, u, v) {
				return violation(net, fmt.Sprintf("arc %s → %s breaks the layering", l.Describe(u), l.Describe(v)))
			}
			if v == l.WithdrawNode() {
				reachesWithdraw = true
			}
		}

		if i, ok := l.PersonIndex(u); ok && !l.nonParticipating[i] && !reachesWithdraw {
			return violation(net, fmt.Sprintf("%s has no arc to withdraw", l.Describe(u)))
		}
	}
	return nil
}

func arcAllowed(l *Layout, u, v int) bool {
	switch l.Classify(u) {
	case KindSource:
		return l.Classify(v) == KindPerson

	case KindPerson:
		i, _ := l.PersonIndex(u)
		if l.nonParticipating[i] {
			return v == l.NonParticipatingNode()
		}
		if v == l.WithdrawNode() || (v == l.NonParticipatingNode() && l.spare[i]) {
			return true
		}
		c, ok := l.CategoryIndex(v)
		return ok && l.isAllowed(i, c)

	case KindCategory:
		c, _ := l.CategoryIndex(u)
		tc, _, ok := l.TierIndex(v)
		return ok && tc == c

	case KindNonParticipating, KindWithdraw, KindTier:
		return v == l.Sink()

	default:
		return false
	}
}

func violation(net *network.Network, msg string) *network.FatalError {
	return network.NewFatal(apperror.CodeStructuralEncodingViolation, msg, net)
}
