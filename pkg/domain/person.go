package domain

// Константы выбора в анкете
const (
	// PlaceholderChoice значение пустого выпадающего списка
	PlaceholderChoice = "maak een keuze"
	// MaxChoices количество ранжированных выборов в анкете
	MaxChoices = 3
	// WithdrawRank ранг неявного четвёртого выбора - выбывания
	WithdrawRank = MaxChoices
)

// Person участник лотереи
type Person struct {
	ID               string   // номер отношения (relatienummer)
	Tier             Tier     // уровень приоритета
	Choices          []string // до MaxChoices названий групп по убыванию предпочтения
	Advised          []string // рекомендованные группы
	NonParticipating bool     // член клуба, который не танцует
	Row              []string // исходная строка для экспорта
}

// Rank возвращает позицию группы в списке выбора или -1
func (p Person) Rank(category string) int {
	for i, c := range p.Choices {
		if c != "" && c == category {
			return i
		}
	}
	return -1
}

// IsAdvised проверяет, рекомендована ли группа участнику
func (p Person) IsAdvised(category string) bool {
	for _, a := range p.Advised {
		if a == category {
			return true
		}
	}
	return false
}

// Census количество участников по уровням приоритета.
// Неучаствующие члены не учитываются: они не конкурируют за места.
type Census [TierCount]int

// NewCensus считает участников по уровням
func NewCensus(persons []Person) Census {
	var c Census
	for _, p := range persons {
		if p.NonParticipating || !p.Tier.Valid() {
			continue
		}
		c[p.Tier]++
	}
	return c
}

// Total общее количество конкурирующих участников
func (c Census) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Present сообщает, есть ли участники уровня t
func (c Census) Present(t Tier) bool {
	return t.Valid() && c[t] > 0
}
