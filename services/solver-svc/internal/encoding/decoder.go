package encoding

import (
	"lottery/pkg/apperror"
	"lottery/pkg/domain"
	"lottery/services/solver-svc/internal/network"
)

// Decode reads the assignment from a solved network. A person is placed in
// a category when its arc into the category is saturated. Placements list
// the real categories in input order, then non-participating, then
// withdraw; persons keep input order.
//
// The spare unit of a dual enrollment person ends in non-participating or,
// while the first unit got a category, in withdraw. Neither lists the
// person there: no second category is not a withdrawal.
func Decode(enc *Encoded, persons []domain.Person, categories []domain.Category) (a domain.Assignment, err error) {
	if enc == nil || enc.Net == nil || enc.Layout == nil {
		return nil, apperror.New(apperror.CodeNilInput, "encoded network is nil")
	}
	l := enc.Layout
	if len(persons) != l.Persons() || len(categories) != l.Categories() {
		return nil, apperror.Newf(apperror.CodeInvalidArgument,
			"decode expects %d persons and %d categories, got %d and %d",
			l.Persons(), l.Categories(), len(persons), len(categories))
	}

	net := enc.Net
	defer func() {
		if r := recover(); r != nil {
			a, err = nil, network.FromPanic(r, net)
		}
	}()

	placed := make([]bool, len(persons))
	assigned := func(node int) []domain.Person {
		out := []domain.Person{}
		for _, w := range net.Neighbors(node) {
			i, ok := l.PersonIndex(w)
			if !ok || net.Capacity(w, node) == 0 {
				continue
			}
			if net.CanFlow(w, node) {
				continue
			}
			if node == l.NonParticipatingNode() && !l.nonParticipating[i] {
				continue
			}
			if node == l.WithdrawNode() && placed[i] {
				continue
			}
			placed[i] = true
			out = append(out, persons[i])
		}
		return out
	}

	a = make(domain.Assignment, 0, len(categories)+2)
	for c, cat := range categories {
		a = append(a, domain.Placement{Category: cat, Persons: assigned(l.CategoryNode(c))})
	}
	a = append(a,
		domain.Placement{Category: domain.NonParticipatingCategory(), Persons: assigned(l.NonParticipatingNode())},
		domain.Placement{Category: domain.WithdrawCategory(enc.WithdrawCap), Persons: assigned(l.WithdrawNode())},
	)
	return a, nil
}
