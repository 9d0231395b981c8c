package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lottery/pkg/domain"
)

// AssignmentCache кэш решённых распределений
type AssignmentCache struct {
	cache      Cache
	defaultTTL time.Duration
}

// CachedAssignment кэшированный результат решения
type CachedAssignment struct {
	Placements    []CachedPlacement `json:"placements"`
	TotalCost     int64             `json:"total_cost"`
	Augmentations int               `json:"augmentations"`
	ComputedAt    time.Time         `json:"computed_at"`
}

// CachedPlacement назначение, сохранённое по идентификаторам участников
type CachedPlacement struct {
	Category  string   `json:"category"`
	PersonIDs []string `json:"person_ids"`
}

// NewAssignmentCache создаёт кэш распределений
func NewAssignmentCache(cache Cache, defaultTTL time.Duration) *AssignmentCache {
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}
	return &AssignmentCache{
		cache:      cache,
		defaultTTL: defaultTTL,
	}
}

// Get получает кэшированный результат.
// Повреждённая запись удаляется и считается промахом.
func (ac *AssignmentCache) Get(ctx context.Context, inputHash string) (*CachedAssignment, bool, error) {
	key := BuildAssignmentKey(inputHash)

	data, err := ac.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var result CachedAssignment
	if err := json.Unmarshal(data, &result); err != nil {
		_ = ac.cache.Delete(ctx, key) //nolint:errcheck // best effort cleanup
		return nil, false, nil
	}

	return &result, true, nil
}

// Set сохраняет распределение в кэш
func (ac *AssignmentCache) Set(ctx context.Context, inputHash string, assignment domain.Assignment, totalCost int64, augmentations int) error {
	result := CachedAssignment{
		Placements:    make([]CachedPlacement, 0, len(assignment)),
		TotalCost:     totalCost,
		Augmentations: augmentations,
		ComputedAt:    time.Now().UTC(),
	}

	for _, p := range assignment {
		ids := make([]string, len(p.Persons))
		for i, person := range p.Persons {
			ids[i] = person.ID
		}
		result.Placements = append(result.Placements, CachedPlacement{
			Category:  p.Category.Name,
			PersonIDs: ids,
		})
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return ac.cache.Set(ctx, BuildAssignmentKey(inputHash), data, ac.defaultTTL)
}

// Invalidate удаляет запись для входа
func (ac *AssignmentCache) Invalidate(ctx context.Context, inputHash string) error {
	return ac.cache.Delete(ctx, BuildAssignmentKey(inputHash))
}

// InvalidateAll удаляет все кэшированные распределения
func (ac *AssignmentCache) InvalidateAll(ctx context.Context) (int64, error) {
	return ac.cache.DeleteByPattern(ctx, "assignment:*")
}

// Restore восстанавливает распределение по загруженным участникам и группам.
// Синтетические группы ищутся по имени среди synthetic.
func (r *CachedAssignment) Restore(persons []domain.Person, categories []domain.Category, synthetic ...domain.Category) (domain.Assignment, error) {
	byID := make(map[string]domain.Person, len(persons))
	for _, p := range persons {
		byID[p.ID] = p
	}

	byName := make(map[string]domain.Category, len(categories)+len(synthetic))
	for _, c := range categories {
		byName[c.Name] = c
	}
	for _, c := range synthetic {
		byName[c.Name] = c
	}

	assignment := make(domain.Assignment, 0, len(r.Placements))
	for _, cp := range r.Placements {
		category, ok := byName[cp.Category]
		if !ok {
			return nil, fmt.Errorf("cached category %q is not in the input", cp.Category)
		}

		placed := make([]domain.Person, 0, len(cp.PersonIDs))
		for _, id := range cp.PersonIDs {
			person, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("cached person %q is not in the input", id)
			}
			placed = append(placed, person)
		}
		assignment = append(assignment, domain.Placement{Category: category, Persons: placed})
	}

	return assignment, nil
}
