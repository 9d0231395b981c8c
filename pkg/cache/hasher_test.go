package cache

import (
	"testing"

	"lottery/pkg/domain"
)

func hashInput() ([]domain.Person, []domain.Category) {
	persons := []domain.Person{
		{ID: "1", Tier: domain.TierBoard, Choices: []string{"salsa", "tango"}},
		{ID: "2", Tier: domain.TierFemale, Choices: []string{"tango"}, Advised: []string{"tango"}},
	}
	categories := []domain.Category{
		{Name: "salsa", MinSize: 2, MaxSize: 10, AdditionalSpace: 1},
		{Name: "tango", MaxSize: 8},
	}
	return persons, categories
}

func TestInputHash_Deterministic(t *testing.T) {
	persons, categories := hashInput()

	h1 := InputHash(persons, categories, "policy-a")
	h2 := InputHash(persons, categories, "policy-a")

	if h1 != h2 {
		t.Errorf("same input should give same hash: %s != %s", h1, h2)
	}
	if len(h1) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(h1))
	}
}

func TestInputHash_Sensitive(t *testing.T) {
	persons, categories := hashInput()
	base := InputHash(persons, categories, "policy-a")

	tests := []struct {
		name   string
		mutate func(p []domain.Person, c []domain.Category) ([]domain.Person, []domain.Category, string)
	}{
		{"policy", func(p []domain.Person, c []domain.Category) ([]domain.Person, []domain.Category, string) {
			return p, c, "policy-b"
		}},
		{"person order", func(p []domain.Person, c []domain.Category) ([]domain.Person, []domain.Category, string) {
			return []domain.Person{p[1], p[0]}, c, "policy-a"
		}},
		{"capacity", func(p []domain.Person, c []domain.Category) ([]domain.Person, []domain.Category, string) {
			c2 := append([]domain.Category(nil), c...)
			c2[1].MaxSize = 9
			return p, c2, "policy-a"
		}},
		{"tier", func(p []domain.Person, c []domain.Category) ([]domain.Person, []domain.Category, string) {
			p2 := append([]domain.Person(nil), p...)
			p2[1].Tier = domain.TierNonFemale
			return p2, c, "policy-a"
		}},
		{"choice split", func(p []domain.Person, c []domain.Category) ([]domain.Person, []domain.Category, string) {
			p2 := append([]domain.Person(nil), p...)
			p2[0].Choices = []string{"salsa,tango"}
			return p2, c, "policy-a"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, c := hashInput()
			p, c, extra := tt.mutate(p, c)
			if InputHash(p, c, extra) == base {
				t.Error("hash should change")
			}
		})
	}
}

func TestBuildAssignmentKey(t *testing.T) {
	if got := BuildAssignmentKey("abc"); got != "assignment:abc" {
		t.Errorf("BuildAssignmentKey() = %s", got)
	}
}
