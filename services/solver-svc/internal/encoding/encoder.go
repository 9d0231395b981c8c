// Package encoding builds the lottery flow network from persons and
// categories, checks its structure, and reads the solved flow back into
// an assignment.
package encoding

import (
	"fmt"

	"lottery/pkg/apperror"
	"lottery/pkg/domain"
	"lottery/services/solver-svc/internal/costmodel"
	"lottery/services/solver-svc/internal/network"
)

// Encoded is a network ready to solve, with its layout.
type Encoded struct {
	Net    *network.Network
	Layout *Layout

	// ExpectedFlow is the flow progress is measured against: per person the
	// source capacity, at most the number of arcs leaving the person.
	ExpectedFlow int64

	// WithdrawCap is the capacity of the withdraw category, 0 when unbounded.
	WithdrawCap int
}

// Option configures Encode.
type Option func(*encoder)

// WithWithdrawCap limits how many persons may be withdrawn. 0 means unbounded.
// Persons that find neither a category nor a withdraw seat appear in no
// placement; Assignment.Missing lists them.
func WithWithdrawCap(n int) Option {
	return func(e *encoder) {
		e.withdrawCap = n
	}
}

type encoder struct {
	model       *costmodel.Model
	withdrawCap int

	index  map[string]int
	layout *Layout
	net    *network.Network
}

// Encode builds the network. Arcs are inserted persons first, in input
// order, then categories; the oracle breaks cost ties by this order.
//
// Input problems (unknown category, invalid tier, duplicate category) are
// returned as *apperror.Error. A network that fails CheckStructure is
// returned as *network.FatalError.
func Encode(persons []domain.Person, categories []domain.Category, model *costmodel.Model, opts ...Option) (enc *Encoded, err error) {
	if model == nil {
		return nil, apperror.New(apperror.CodeNilInput, "cost model is nil")
	}

	e := &encoder{model: model}
	for _, opt := range opts {
		opt(e)
	}
	if e.withdrawCap < 0 {
		return nil, apperror.Newf(apperror.CodeInvalidArgument, "withdraw cap must be non-negative, got %d", e.withdrawCap)
	}

	if err := e.indexCategories(categories); err != nil {
		return nil, err
	}

	e.layout = newLayout(persons, categories)
	if e.net, err = network.New(e.layout.NumNodes()); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			enc, err = nil, network.FromPanic(r, e.net)
		}
	}()

	var expected int64
	for i, p := range persons {
		capacity, err := e.addPerson(i, p)
		if err != nil {
			return nil, err
		}
		expected += capacity
	}

	for c, cat := range categories {
		e.addCategory(c, cat)
	}

	l := e.layout
	e.net.AddEdge(l.NonParticipatingNode(), l.Sink(), 0, network.Unbounded)
	withdrawCapacity := network.Unbounded
	if e.withdrawCap > 0 {
		withdrawCapacity = int64(e.withdrawCap)
	}
	e.net.AddEdge(l.WithdrawNode(), l.Sink(), 0, withdrawCapacity)

	if err := CheckStructure(e.net, l); err != nil {
		return nil, err
	}

	return &Encoded{
		Net:          e.net,
		Layout:       l,
		ExpectedFlow: expected,
		WithdrawCap:  e.withdrawCap,
	}, nil
}

func (e *encoder) indexCategories(categories []domain.Category) error {
	e.index = make(map[string]int, len(categories))
	for i, c := range categories {
		if c.Kind != domain.KindReal {
			return apperror.Newf(apperror.CodeInvalidArgument, "category %s is synthetic", c.Name)
		}
		if err := c.Validate(); err != nil {
			return apperror.Wrap(err, apperror.CodeInvalidCapacity, err.Error()).WithField(c.Name)
		}
		if _, ok := e.index[c.Name]; ok {
			return apperror.Newf(apperror.CodeDuplicateCategory, "category %s is listed twice", c.Name)
		}
		e.index[c.Name] = i
	}
	return nil
}

// addPerson adds the source arc and the choice arcs of person i and
// returns the flow the person can carry.
func (e *encoder) addPerson(i int, p domain.Person) (int64, error) {
	l := e.layout
	node := l.PersonNode(i)

	if p.NonParticipating {
		e.net.AddEdge(l.Source(), node, 0, 1)
		e.net.AddEdge(node, l.NonParticipatingNode(), 0, 1)
		return 1, nil
	}

	if !p.Tier.Valid() {
		return 0, apperror.Newf(apperror.CodeInvalidPerson, "person %s has invalid tier %d", p.ID, p.Tier)
	}
	if len(p.Choices) > domain.MaxChoices {
		return 0, apperror.Newf(apperror.CodeInvalidPerson, "person %s has %d choices, at most %d allowed", p.ID, len(p.Choices), domain.MaxChoices)
	}

	choices, err := e.cleanChoices(p)
	if err != nil {
		return 0, err
	}

	capacity := e.model.SourceCapacity(p.Tier)
	e.net.AddEdge(l.Source(), node, e.model.SourceCost(p.Tier), capacity)

	for _, ch := range choices {
		cost, err := e.model.ChoiceCost(p.Tier, ch.rank, p.IsAdvised(ch.name))
		if err != nil {
			return 0, err
		}
		e.net.AddEdge(node, l.CategoryNode(ch.category), cost, 1)
		l.allowed[i] = append(l.allowed[i], ch.category)
	}

	e.net.AddEdge(node, l.WithdrawNode(), e.model.WithdrawCost(), 1)
	exits := int64(len(choices)) + 1

	// the second unit of a dual enrollment person that gets only one
	// category leaves through non-participating, outside the withdraw cap
	if capacity > 1 && len(choices) > 0 {
		e.net.AddEdge(node, l.NonParticipatingNode(), e.model.WithdrawCost(), capacity-1)
		l.spare[i] = true
		exits += capacity - 1
	}
	return min(capacity, exits), nil
}

type rankedChoice struct {
	name     string
	category int
	rank     int
}

// cleanChoices drops empty entries, the placeholder, repeated names and the
// synthetic category names. The rank is the position in the original list.
func (e *encoder) cleanChoices(p domain.Person) ([]rankedChoice, error) {
	seen := make(map[string]bool, len(p.Choices))
	out := make([]rankedChoice, 0, len(p.Choices))

	for rank, name := range p.Choices {
		switch name {
		case "", domain.PlaceholderChoice, domain.WithdrawName, domain.NonParticipatingName:
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		c, ok := e.index[name]
		if !ok {
			return nil, apperror.New(apperror.CodeUnknownCategory,
				fmt.Sprintf("person %s chose unknown category %s", p.ID, name)).
				WithDetails("person", p.ID).
				WithDetails("rank", rank)
		}
		out = append(out, rankedChoice{name: name, category: c, rank: rank})
	}
	return out, nil
}

func (e *encoder) addCategory(c int, cat domain.Category) {
	l := e.layout
	node := l.CategoryNode(c)
	costs := e.model.BandCosts()
	capacities := [BandCount]int64{
		int64(cat.MinimumCapacity()),
		int64(cat.StandardCapacity()),
		int64(cat.OverflowCapacity()),
	}

	for b := BandMinimum; b <= BandOverflow; b++ {
		tier := l.TierNode(c, b)
		e.net.AddEdge(node, tier, costs[b], capacities[b])
		e.net.AddEdge(tier, l.Sink(), 0, network.Unbounded)
	}
}
