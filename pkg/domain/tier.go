package domain

import (
	"fmt"
	"strings"
)

// Tier уровень приоритета участника. Меньшее значение - выше приоритет.
type Tier int

const (
	TierBoard Tier = iota
	TierDamn
	TierExistingMember
	TierNonDancerLastYear
	TierUnrolledLastYear
	TierNonFemale
	TierFemale
	TierHalfYear
	TierGapYear
	TierHalfGapYear
	TierNonStudying
	TierHalfNonStudying
)

// TierCount количество уровней приоритета
const TierCount = int(TierHalfNonStudying) + 1

var tierNames = [TierCount]string{
	"Board",
	"Damn",
	"ExistingMember",
	"NonDancerLastYear",
	"UnrolledLastYear",
	"NonFemale",
	"Female",
	"HalfYear",
	"GapYear",
	"HalfGapYear",
	"NonStudying",
	"HalfNonStudying",
}

// String возвращает строковое представление уровня
func (t Tier) String() string {
	if !t.Valid() {
		return "Unknown"
	}
	return tierNames[t]
}

// Valid проверяет, что уровень входит в перечисление
func (t Tier) Valid() bool {
	return t >= TierBoard && int(t) < TierCount
}

// Higher сообщает, что t имеет более высокий приоритет, чем other
func (t Tier) Higher(other Tier) bool {
	return t < other
}

// ParseTier разбирает имя уровня без учёта регистра
func ParseTier(s string) (Tier, error) {
	for i, name := range tierNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return Tier(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

// Tiers возвращает все уровни от высшего к низшему
func Tiers() []Tier {
	tiers := make([]Tier, TierCount)
	for i := range tiers {
		tiers[i] = Tier(i)
	}
	return tiers
}
