package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottery/pkg/domain"
)

func TestAssignmentCache_SetGetRestore(t *testing.T) {
	mem := NewMemoryCache(nil)
	defer mem.Close()

	ac := NewAssignmentCache(mem, time.Hour)
	ctx := context.Background()

	persons, categories := hashInput()
	withdraw := domain.WithdrawCategory(0)
	assignment := domain.Assignment{
		{Category: categories[0], Persons: []domain.Person{persons[0]}},
		{Category: categories[1], Persons: []domain.Person{persons[0], persons[1]}},
		{Category: withdraw, Persons: []domain.Person{}},
	}

	hash := InputHash(persons, categories)
	require.NoError(t, ac.Set(ctx, hash, assignment, 42, 3))

	cached, found, err := ac.Get(ctx, hash)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(42), cached.TotalCost)
	assert.Equal(t, 3, cached.Augmentations)
	assert.False(t, cached.ComputedAt.IsZero())

	restored, err := cached.Restore(persons, categories, withdraw)
	require.NoError(t, err)
	assert.Equal(t, assignment, restored)
}

func TestAssignmentCache_Miss(t *testing.T) {
	mem := NewMemoryCache(nil)
	defer mem.Close()

	_, found, err := NewAssignmentCache(mem, 0).Get(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAssignmentCache_CorruptedEntry(t *testing.T) {
	mem := NewMemoryCache(nil)
	defer mem.Close()

	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, BuildAssignmentKey("bad"), []byte("{not json"), 0))

	_, found, err := NewAssignmentCache(mem, 0).Get(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, found)

	exists, _ := mem.Exists(ctx, BuildAssignmentKey("bad"))
	assert.False(t, exists, "corrupted entry should be removed")
}

func TestAssignmentCache_Invalidate(t *testing.T) {
	mem := NewMemoryCache(nil)
	defer mem.Close()

	ac := NewAssignmentCache(mem, 0)
	ctx := context.Background()

	require.NoError(t, ac.Set(ctx, "a", nil, 0, 0))
	require.NoError(t, ac.Set(ctx, "b", nil, 0, 0))
	require.NoError(t, mem.Set(ctx, "other", []byte("x"), 0))

	require.NoError(t, ac.Invalidate(ctx, "a"))
	_, found, _ := ac.Get(ctx, "a")
	assert.False(t, found)

	n, err := ac.InvalidateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	exists, _ := mem.Exists(ctx, "other")
	assert.True(t, exists)
}

func TestCachedAssignment_RestoreUnknown(t *testing.T) {
	persons, categories := hashInput()

	_, err := (&CachedAssignment{Placements: []CachedPlacement{{Category: "ballet"}}}).Restore(persons, categories)
	assert.Error(t, err)

	_, err = (&CachedAssignment{Placements: []CachedPlacement{{Category: "salsa", PersonIDs: []string{"99"}}}}).Restore(persons, categories)
	assert.Error(t, err)
}
