// Package costmodel turns the fairness policy into arc costs.
//
// Every present tier owns a band of rank costs [start, start+inc, start+2·inc].
// Bands are ordered by tier and separated by padding, so the worst choice of
// a higher tier is still cheaper than the advised first choice of any lower
// tier. The rank step shrinks by the effective ratio from tier to tier, so
// up to Horizon() lower tier people can move one rank before the aggregate
// saving reaches a single rank move of a higher tier person. When the
// population is larger than Horizon() the cost ceiling caps the ratio and
// FullDominance reports false.
package costmodel

import (
	"fmt"

	"lottery/pkg/apperror"
	"lottery/pkg/domain"
)

// band is the cost range of one tier.
type band struct {
	start int64
	inc   int64
	ok    bool
}

func (b band) cost(rank int) int64 {
	return b.start + int64(rank)*b.inc
}

// Model prices the arcs of the lottery network for a given population.
type Model struct {
	policy  Policy
	census  domain.Census
	ceiling int64

	ratio   int64
	flatInc int64
	bands   [domain.TierCount]band

	maxChoice int64
	overflow  int64
	withdraw  int64
}

// New derives the tier bands for the census. Every arc cost and every priced
// source to sink path stays at or below ceiling, usually
// network.CostCeiling of the network size.
//
// The effective ratio is max(Ratio, population+1) when it fits under the
// ceiling, otherwise the largest ratio that does. When even Ratio does not
// fit, New fails with COST_OVERFLOW.
func New(policy Policy, census domain.Census, ceiling int64) (*Model, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if ceiling <= 0 {
		return nil, apperror.Newf(apperror.CodeInvalidArgument, "cost ceiling must be positive, got %d", ceiling)
	}

	m := &Model{policy: policy, census: census, ceiling: ceiling}

	target := policy.Ratio
	if want := int64(census.Total()) + 1; want > target {
		target = want
	}

	if !m.derive(policy.Ratio) {
		return nil, apperror.Newf(apperror.CodeCostOverflow,
			"cost bands for %d present tiers do not fit under %d even with ratio %d",
			m.presentNonFlat(), ceiling, policy.Ratio)
	}

	if !m.derive(target) {
		// derive is monotone in the ratio: search the largest one that fits
		lo, hi := policy.Ratio, target
		for hi-lo > 1 {
			mid := lo + (hi-lo)/2
			if m.derive(mid) {
				lo = mid
			} else {
				hi = mid
			}
		}
		m.derive(lo)
	}

	if err := m.CheckDominance(); err != nil {
		return nil, err
	}
	return m, nil
}

// derive computes every band for ratio r. It reports false when any cost
// would exceed the ceiling.
func (m *Model) derive(r int64) bool {
	p := m.policy
	m.ratio = r
	m.bands = [domain.TierCount]band{}

	// increments from the lowest present tier up
	inc := p.BaseIncrement
	first := true
	for t := domain.TierCount - 1; t >= 0; t-- {
		tier := domain.Tier(t)
		if isFlat(tier) || !m.census.Present(tier) {
			continue
		}
		if !first {
			var ok bool
			if inc, ok = m.mul(inc, r); !ok {
				return false
			}
		}
		first = false
		m.bands[tier] = band{inc: inc, ok: true}
	}

	m.flatInc = p.BaseIncrement
	if !first {
		var ok bool
		if m.flatInc, ok = m.mul(inc, r); !ok {
			return false
		}
	}
	for _, t := range FlatTiers {
		m.bands[t] = band{start: p.FlatCost, inc: m.flatInc, ok: true}
	}

	// starts from the highest tier down
	end, ok := m.addAll(p.FlatCost, 2*m.flatInc)
	if !ok {
		return false
	}
	m.maxChoice = p.FlatCost + m.flatInc
	for t := 0; t < domain.TierCount; t++ {
		tier := domain.Tier(t)
		b := m.bands[tier]
		if isFlat(tier) || !b.ok {
			continue
		}
		if b.start, ok = m.addAll(end, p.Padding); !ok {
			return false
		}
		if end, ok = m.addAll(b.start, 2*b.inc); !ok {
			return false
		}
		m.bands[tier] = b
		m.maxChoice = end
	}

	m.overflow = m.overflowCost()
	if m.withdraw, ok = m.addAll(m.maxChoice, m.overflow, p.WithdrawPenalty); !ok {
		return false
	}

	maxSource, ok := m.mul(int64(domain.TierCount-1), p.SourceStep)
	if !ok {
		return false
	}
	total, ok := m.addAll(m.withdraw, maxSource)
	return ok && total <= m.ceiling
}

// overflowCost is the band start of the anchor tier, of the next present
// lower tier when the anchor is absent, or one above the worst choice.
func (m *Model) overflowCost() int64 {
	for t := m.policy.OverflowAnchor; int(t) < domain.TierCount; t++ {
		if b := m.bands[t]; b.ok {
			return b.start
		}
	}
	return m.maxChoice + 1
}

func (m *Model) presentNonFlat() int {
	n := 0
	for _, t := range domain.Tiers() {
		if !isFlat(t) && m.census.Present(t) {
			n++
		}
	}
	return n
}

// =============================================================================
// Arc Costs
// =============================================================================

// ChoiceCost returns the cost of the person→category arc for a choice of the
// given rank. An advised first choice is discounted.
func (m *Model) ChoiceCost(tier domain.Tier, rank int, advised bool) (int64, error) {
	if rank < 0 || rank >= domain.MaxChoices {
		return 0, apperror.Newf(apperror.CodeInvalidArgument, "choice rank %d out of range [0, %d)", rank, domain.MaxChoices)
	}
	if !tier.Valid() {
		return 0, apperror.Newf(apperror.CodeInvalidArgument, "invalid tier %d", tier)
	}
	b := m.bands[tier]
	if !b.ok {
		return 0, apperror.Newf(apperror.CodeInvalidArgument, "tier %s is not present in the census", tier)
	}

	var c int64
	if isFlat(tier) {
		c = m.policy.FlatCost
		if rank > 1 {
			c += int64(rank-1) * m.flatInc
		}
	} else {
		c = b.cost(rank)
	}

	if advised && rank == 0 {
		c -= m.policy.AdviceDiscount
	}
	return c, nil
}

// WithdrawCost returns the cost of the person→withdraw arc. It exceeds the
// most expensive real placement, worst choice plus overflow seat.
func (m *Model) WithdrawCost() int64 {
	return m.withdraw
}

// SourceCost returns the cost of the source→person arc.
func (m *Model) SourceCost(tier domain.Tier) int64 {
	return int64(tier) * m.policy.SourceStep
}

// SourceCapacity returns how many categories a person of the tier may receive.
func (m *Model) SourceCapacity(tier domain.Tier) int64 {
	if m.policy.dual(tier) {
		return 2
	}
	return 1
}

// BandCosts returns the costs of the minimum, standard and overflow bands.
func (m *Model) BandCosts() [3]int64 {
	return [3]int64{0, m.policy.StandardCost, m.overflow}
}

// Ratio returns the effective ratio between adjacent rank steps.
func (m *Model) Ratio() int64 {
	return m.ratio
}

// Horizon returns how many lower tier people are guaranteed to be able to
// move one rank without outweighing a single higher tier rank move.
func (m *Model) Horizon() int {
	return int(m.ratio - 1)
}

// FullDominance reports whether Horizon() covers the whole population, so
// that no number of lower tier people can outweigh a higher tier rank move.
func (m *Model) FullDominance() bool {
	return m.Horizon() >= m.census.Total()
}

// Ceiling returns the cost ceiling the model was derived under.
func (m *Model) Ceiling() int64 {
	return m.ceiling
}

// Band returns the start and rank step of a tier, false when absent.
func (m *Model) Band(tier domain.Tier) (start, inc int64, ok bool) {
	if !tier.Valid() {
		return 0, 0, false
	}
	b := m.bands[tier]
	return b.start, b.inc, b.ok
}

// Policy returns the policy the model was built from.
func (m *Model) Policy() Policy {
	return m.policy
}

// =============================================================================
// Dominance
// =============================================================================

// CheckDominance re-verifies the structural rules between every pair of
// adjacent present tiers:
//
//	Horizon()·inc(lower) < inc(higher)
//	start(lower) - AdviceDiscount > worst choice of higher
//	WithdrawCost() > worst choice
//
// The flat tiers are not compared with each other.
func (m *Model) CheckDominance() error {
	var prev domain.Tier = -1
	h := int64(m.Horizon())

	for _, t := range domain.Tiers() {
		b := m.bands[t]
		if !b.ok {
			continue
		}
		if prev >= 0 && !(isFlat(prev) && isFlat(t)) {
			hb := m.bands[prev]
			if lhs, ok := m.mul(h, b.inc); !ok || lhs >= hb.inc {
				return m.dominanceError("rank step of %s is too large against %s", t, prev)
			}
			worst, _ := m.ChoiceCost(prev, domain.MaxChoices-1, false)
			if b.start-m.policy.AdviceDiscount <= worst {
				return m.dominanceError("band of %s overlaps %s", t, prev)
			}
		}
		prev = t
	}

	if m.withdraw <= m.maxChoice {
		return m.dominanceError("withdraw cost %d does not exceed worst choice %d", m.withdraw, m.maxChoice)
	}
	return nil
}

func (m *Model) dominanceError(format string, args ...any) error {
	return apperror.New(apperror.CodeInvalidPolicy, fmt.Sprintf(format, args...)).
		WithDetails("ratio", m.ratio)
}

// =============================================================================
// Checked Arithmetic
// =============================================================================

func (m *Model) mul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > m.ceiling/b {
		return 0, false
	}
	return a * b, true
}

func (m *Model) addAll(xs ...int64) (int64, bool) {
	var sum int64
	for _, x := range xs {
		if x > m.ceiling-sum {
			return 0, false
		}
		sum += x
	}
	return sum, true
}
