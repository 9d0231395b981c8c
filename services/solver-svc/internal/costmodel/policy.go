package costmodel

import (
	"fmt"
	"strings"

	"lottery/pkg/apperror"
	"lottery/pkg/config"
	"lottery/pkg/domain"
)

// Policy holds the numeric constants of the cost model.
//
// The tier order itself is fixed by domain.Tier. A policy only decides the
// spacing between tiers and ranks, and New rejects any policy whose spacing
// would let lower tiers undercut a higher one.
type Policy struct {
	// FlatCost is the cost of the first two choices of the flat tiers.
	FlatCost int64
	// BaseIncrement is the rank step of the lowest present tier.
	BaseIncrement int64
	// Ratio is the minimum factor between the rank steps of adjacent tiers.
	Ratio int64
	// Padding separates the last rank of a tier from the first rank of the next one.
	Padding int64
	// AdviceDiscount is subtracted from an advised first choice.
	AdviceDiscount int64
	// WithdrawPenalty makes withdraw strictly worse than the worst real placement.
	WithdrawPenalty int64
	// StandardCost is the cost of a seat in the standard band.
	StandardCost int64
	// OverflowAnchor is the tier whose band start prices the overflow band.
	OverflowAnchor domain.Tier
	// SourceStep is multiplied by the tier index on source arcs.
	SourceStep int64
	// DualEnrollment lists tiers that may receive two categories.
	DualEnrollment []domain.Tier
}

// FlatTiers are the governance tiers with flat first and second choice costs.
var FlatTiers = []domain.Tier{domain.TierBoard, domain.TierDamn}

// DefaultPolicy returns the policy used by the lottery unless configured otherwise.
func DefaultPolicy() Policy {
	return Policy{
		FlatCost:        0,
		BaseIncrement:   4,
		Ratio:           4,
		Padding:         4,
		AdviceDiscount:  3,
		WithdrawPenalty: 1,
		StandardCost:    1,
		OverflowAnchor:  domain.TierHalfYear,
		SourceStep:      12,
		DualEnrollment:  []domain.Tier{domain.TierBoard, domain.TierDamn},
	}
}

// PolicyFromConfig converts the policy section of the configuration.
func PolicyFromConfig(cfg config.PolicyConfig) (Policy, error) {
	anchor, err := domain.ParseTier(cfg.OverflowAnchor)
	if err != nil {
		return Policy{}, apperror.Wrap(err, apperror.CodeInvalidPolicy, "invalid overflow anchor").
			WithField("policy.overflow_anchor")
	}

	dual := make([]domain.Tier, 0, len(cfg.DualEnrollment))
	for _, name := range cfg.DualEnrollment {
		t, err := domain.ParseTier(name)
		if err != nil {
			return Policy{}, apperror.Wrap(err, apperror.CodeInvalidPolicy, "invalid dual enrollment tier").
				WithField("policy.dual_enrollment")
		}
		dual = append(dual, t)
	}

	p := Policy{
		FlatCost:        cfg.FlatCost,
		BaseIncrement:   cfg.BaseIncrement,
		Ratio:           cfg.Ratio,
		Padding:         cfg.Padding,
		AdviceDiscount:  cfg.AdviceDiscount,
		WithdrawPenalty: cfg.WithdrawPenalty,
		StandardCost:    cfg.StandardCost,
		OverflowAnchor:  anchor,
		SourceStep:      cfg.SourceStep,
		DualEnrollment:  dual,
	}
	return p, p.Validate()
}

// Validate checks the relations between constants that do not depend on the population.
func (p Policy) Validate() error {
	var problems []string

	if p.BaseIncrement < 1 {
		problems = append(problems, fmt.Sprintf("base increment must be positive, got %d", p.BaseIncrement))
	}
	if p.Ratio < 2 {
		problems = append(problems, fmt.Sprintf("ratio must be at least 2, got %d", p.Ratio))
	}
	if p.FlatCost < 0 || p.Padding < 0 || p.AdviceDiscount < 0 || p.StandardCost < 0 || p.SourceStep < 0 {
		problems = append(problems, "costs must be non-negative")
	}
	if p.Padding <= p.AdviceDiscount {
		problems = append(problems, fmt.Sprintf("padding %d must exceed advice discount %d", p.Padding, p.AdviceDiscount))
	}
	if p.StandardCost >= p.BaseIncrement {
		problems = append(problems, fmt.Sprintf("standard cost %d must be below base increment %d", p.StandardCost, p.BaseIncrement))
	}
	if p.WithdrawPenalty < 1 {
		problems = append(problems, fmt.Sprintf("withdraw penalty must be positive, got %d", p.WithdrawPenalty))
	}
	if !p.OverflowAnchor.Valid() {
		problems = append(problems, fmt.Sprintf("overflow anchor %d is not a tier", p.OverflowAnchor))
	}
	for _, t := range p.DualEnrollment {
		if !t.Valid() {
			problems = append(problems, fmt.Sprintf("dual enrollment tier %d is not a tier", t))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return apperror.Newf(apperror.CodeInvalidPolicy, "incoherent cost policy: %s", strings.Join(problems, "; ")).
		WithDetails("problems", problems)
}

func (p Policy) dual(t domain.Tier) bool {
	for _, d := range p.DualEnrollment {
		if d == t {
			return true
		}
	}
	return false
}

func isFlat(t domain.Tier) bool {
	for _, f := range FlatTiers {
		if f == t {
			return true
		}
	}
	return false
}
