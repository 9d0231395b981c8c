package domain

// TierStatistics статистика выборов для уровня приоритета
type TierStatistics struct {
	Tier      Tier
	Choices   [MaxChoices]int // сколько мест получено по 1-му, 2-му, 3-му выбору
	Withdrawn int
}

// Placed количество полученных мест
func (s TierStatistics) Placed() int {
	return s.Choices[0] + s.Choices[1] + s.Choices[2]
}

// Percentages доли 1-го, 2-го и 3-го выбора среди полученных мест
func (s TierStatistics) Percentages() [MaxChoices]float64 {
	var out [MaxChoices]float64
	total := s.Placed()
	if total == 0 {
		return out
	}
	for i, n := range s.Choices {
		out[i] = float64(n) / float64(total) * 100
	}
	return out
}

// CategoryStatistics заполненность группы
type CategoryStatistics struct {
	Name     string
	Assigned int
	Capacity int
	Choices  [MaxChoices]int
	Overflow int // занятые дополнительные места
}

// FillRatio заполненность относительно обычного максимума
func (s CategoryStatistics) FillRatio() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.Assigned) / float64(s.Capacity)
}

// Statistics сводная статистика распределения
type Statistics struct {
	Tiers            []TierStatistics
	Categories       []CategoryStatistics
	NonParticipating int
	Withdrawn        int
}

// CalculateStatistics вычисляет статистику распределения
func CalculateStatistics(a Assignment) *Statistics {
	stats := &Statistics{
		Tiers: make([]TierStatistics, TierCount),
	}
	for i := range stats.Tiers {
		stats.Tiers[i].Tier = Tier(i)
	}

	for _, placement := range a {
		category := placement.Category
		switch category.Kind {
		case KindWithdraw:
			stats.Withdrawn = len(placement.Persons)
			for _, p := range placement.Persons {
				if p.Tier.Valid() {
					stats.Tiers[p.Tier].Withdrawn++
				}
			}
			continue
		case KindNonParticipating:
			stats.NonParticipating = len(placement.Persons)
			continue
		}

		cs := CategoryStatistics{
			Name:     category.Name,
			Assigned: len(placement.Persons),
			Capacity: category.MaxSize,
		}
		if cs.Assigned > category.MaxSize {
			cs.Overflow = cs.Assigned - category.MaxSize
		}

		for _, p := range placement.Persons {
			rank := p.Rank(category.Name)
			if rank < 0 || rank >= MaxChoices {
				continue
			}
			cs.Choices[rank]++
			if p.Tier.Valid() {
				stats.Tiers[p.Tier].Choices[rank]++
			}
		}
		stats.Categories = append(stats.Categories, cs)
	}

	return stats
}
