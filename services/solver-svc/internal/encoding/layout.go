package encoding

import (
	"fmt"

	"lottery/pkg/domain"
)

// NodeKind is the layer a node index belongs to.
type NodeKind int

const (
	KindSource NodeKind = iota
	KindPerson
	KindCategory
	KindNonParticipating
	KindWithdraw
	KindTier
	KindSink
	KindInvalid
)

func (k NodeKind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindPerson:
		return "person"
	case KindCategory:
		return "category"
	case KindNonParticipating:
		return "non_participating"
	case KindWithdraw:
		return "withdraw"
	case KindTier:
		return "tier"
	case KindSink:
		return "sink"
	default:
		return "invalid"
	}
}

// Band is one of the three capacity bands of a real category.
type Band int

const (
	BandMinimum Band = iota
	BandStandard
	BandOverflow
)

// BandCount is the number of tier nodes per real category.
const BandCount = 3

func (b Band) String() string {
	switch b {
	case BandMinimum:
		return "minimum"
	case BandStandard:
		return "standard"
	case BandOverflow:
		return "overflow"
	default:
		return fmt.Sprintf("band(%d)", int(b))
	}
}

// Layout maps entities to node indices:
//
//	source = 0
//	persons = [1, 1+P)
//	categories = [1+P, 1+P+C+2), the last two are non-participating, withdraw
//	tier nodes = BandCount per real category
//	sink = last
//
// It also keeps what the structure check and the decision log need: each
// person's allowed categories, identifiers and category names.
type Layout struct {
	personIDs     []string
	categoryNames []string

	nonParticipating []bool
	spare            []bool  // dual enrollment person with a spare arc to non-participating
	allowed          [][]int // real category indices per person, in rank order
}

func newLayout(persons []domain.Person, categories []domain.Category) *Layout {
	l := &Layout{
		personIDs:        make([]string, len(persons)),
		categoryNames:    make([]string, len(categories)),
		nonParticipating: make([]bool, len(persons)),
		spare:            make([]bool, len(persons)),
		allowed:          make([][]int, len(persons)),
	}
	for i, p := range persons {
		l.personIDs[i] = p.ID
		l.nonParticipating[i] = p.NonParticipating
	}
	for i, c := range categories {
		l.categoryNames[i] = c.Name
	}
	return l
}

// Persons returns P.
func (l *Layout) Persons() int { return len(l.personIDs) }

// Categories returns the number of real categories.
func (l *Layout) Categories() int { return len(l.categoryNames) }

// NumNodes returns the size of the network.
func (l *Layout) NumNodes() int {
	return NodeCount(l.Persons(), l.Categories())
}

// NodeCount returns the size of the network for the given numbers of
// persons and real categories.
func NodeCount(persons, categories int) int {
	return 1 + persons + categories + 2 + BandCount*categories + 1
}

// Source returns the source node.
func (l *Layout) Source() int { return 0 }

// Sink returns the sink node.
func (l *Layout) Sink() int { return l.NumNodes() - 1 }

// PersonNode returns the node of person i.
func (l *Layout) PersonNode(i int) int { return 1 + i }

// CategoryNode returns the node of real category c.
func (l *Layout) CategoryNode(c int) int { return 1 + l.Persons() + c }

// NonParticipatingNode returns the node of the non-participating category.
func (l *Layout) NonParticipatingNode() int { return 1 + l.Persons() + l.Categories() }

// WithdrawNode returns the node of the withdraw category.
func (l *Layout) WithdrawNode() int { return 2 + l.Persons() + l.Categories() }

// TierNode returns the tier node of band b of real category c.
func (l *Layout) TierNode(c int, b Band) int {
	return 3 + l.Persons() + l.Categories() + BandCount*c + int(b)
}

// Classify returns the layer of node.
func (l *Layout) Classify(node int) NodeKind {
	p, c := l.Persons(), l.Categories()
	switch {
	case node == 0:
		return KindSource
	case node < 0 || node >= l.NumNodes():
		return KindInvalid
	case node == l.Sink():
		return KindSink
	case node < 1+p:
		return KindPerson
	case node < 1+p+c:
		return KindCategory
	case node == l.NonParticipatingNode():
		return KindNonParticipating
	case node == l.WithdrawNode():
		return KindWithdraw
	default:
		return KindTier
	}
}

// PersonIndex returns the person index of node.
func (l *Layout) PersonIndex(node int) (int, bool) {
	if l.Classify(node) != KindPerson {
		return 0, false
	}
	return node - 1, true
}

// CategoryIndex returns the real category index of node.
func (l *Layout) CategoryIndex(node int) (int, bool) {
	if l.Classify(node) != KindCategory {
		return 0, false
	}
	return node - 1 - l.Persons(), true
}

// TierIndex returns the category and band of a tier node.
func (l *Layout) TierIndex(node int) (int, Band, bool) {
	if l.Classify(node) != KindTier {
		return 0, 0, false
	}
	off := node - l.TierNode(0, BandMinimum)
	return off / BandCount, Band(off % BandCount), true
}

// PersonID returns the identifier of person i.
func (l *Layout) PersonID(i int) string { return l.personIDs[i] }

// CategoryName returns the name of real category c.
func (l *Layout) CategoryName(c int) string { return l.categoryNames[c] }

// Describe names a node for diagnostics.
func (l *Layout) Describe(node int) string {
	switch l.Classify(node) {
	case KindSource:
		return "source"
	case KindSink:
		return "sink"
	case KindPerson:
		i, _ := l.PersonIndex(node)
		return "person " + l.personIDs[i]
	case KindCategory:
		c, _ := l.CategoryIndex(node)
		return "category " + l.categoryNames[c]
	case KindNonParticipating:
		return "category " + domain.NonParticipatingName
	case KindWithdraw:
		return "category " + domain.WithdrawName
	case KindTier:
		c, b, _ := l.TierIndex(node)
		return fmt.Sprintf("%s/%s", l.categoryNames[c], b)
	default:
		return fmt.Sprintf("node %d", node)
	}
}

func (l *Layout) isAllowed(person, category int) bool {
	for _, c := range l.allowed[person] {
		if c == category {
			return true
		}
	}
	return false
}
