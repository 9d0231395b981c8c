package domain

// Placement группа и назначенные в неё участники
type Placement struct {
	Category Category
	Persons  []Person
}

// Assignment результат распределения: реальные группы в порядке ввода,
// затем неучаствующие, затем выбывшие.
type Assignment []Placement

// Find ищет размещение по имени группы
func (a Assignment) Find(name string) (Placement, bool) {
	for _, p := range a {
		if p.Category.Name == name {
			return p, true
		}
	}
	return Placement{}, false
}

// Placed количество мест, занятых в реальных группах
func (a Assignment) Placed() int {
	n := 0
	for _, p := range a {
		if p.Category.Kind == KindReal {
			n += len(p.Persons)
		}
	}
	return n
}

// Withdrawn участники, которым не досталось места
func (a Assignment) Withdrawn() []Person {
	for _, p := range a {
		if p.Category.Kind == KindWithdraw {
			return p.Persons
		}
	}
	return nil
}

// ByPerson индекс: ID участника -> названия групп, в которые он попал
func (a Assignment) ByPerson() map[string][]string {
	index := make(map[string][]string)
	for _, p := range a {
		for _, person := range p.Persons {
			index[person.ID] = append(index[person.ID], p.Category.Name)
		}
	}
	return index
}

// Missing участники из persons, не попавшие ни в одно размещение. Так бывает,
// когда предел выбывших исчерпан.
func (a Assignment) Missing(persons []Person) []Person {
	index := a.ByPerson()
	var missing []Person
	for _, p := range persons {
		if _, ok := index[p.ID]; !ok {
			missing = append(missing, p)
		}
	}
	return missing
}
