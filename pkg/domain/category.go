package domain

import (
	"fmt"
	"math"
)

// Имена синтетических групп
const (
	NonParticipatingName = "niet-dansend lid"
	WithdrawName         = "uitgeloot"
)

// Unbounded ёмкость синтетических групп без ограничения
const Unbounded = math.MaxInt32

// CategoryKind вид группы
type CategoryKind int

const (
	KindReal CategoryKind = iota
	KindNonParticipating
	KindWithdraw
)

// String возвращает строковое представление вида группы
func (k CategoryKind) String() string {
	switch k {
	case KindNonParticipating:
		return "non_participating"
	case KindWithdraw:
		return "withdraw"
	default:
		return "real"
	}
}

// Category танцевальная группа
type Category struct {
	Name            string
	MinSize         int // гарантированный минимум
	MaxSize         int // обычный максимум, включая минимум
	AdditionalSpace int // дополнительные места сверх максимума
	Kind            CategoryKind
}

// MinimumCapacity ёмкость минимальной полосы
func (c Category) MinimumCapacity() int { return c.MinSize }

// StandardCapacity ёмкость стандартной полосы
func (c Category) StandardCapacity() int { return c.MaxSize - c.MinSize }

// OverflowCapacity ёмкость полосы переполнения
func (c Category) OverflowCapacity() int { return c.AdditionalSpace }

// Capacity полная ёмкость группы
func (c Category) Capacity() int {
	if c.Kind != KindReal {
		return c.MaxSize
	}
	return c.MaxSize + c.AdditionalSpace
}

// IsSynthetic сообщает, что группа создана решателем, а не загружена
func (c Category) IsSynthetic() bool {
	return c.Kind != KindReal
}

// Validate проверяет согласованность ёмкостей
func (c Category) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("category name is empty")
	case c.MinSize < 0 || c.MaxSize < 0 || c.AdditionalSpace < 0:
		return fmt.Errorf("category %s: capacities must be non-negative", c.Name)
	case c.MinSize > c.MaxSize:
		return fmt.Errorf("category %s: minimum %d exceeds maximum %d", c.Name, c.MinSize, c.MaxSize)
	case c.Kind == KindReal && (c.Name == NonParticipatingName || c.Name == WithdrawName):
		return fmt.Errorf("category name %s is reserved", c.Name)
	}
	return nil
}

// NonParticipatingCategory группа для членов, которые не танцуют
func NonParticipatingCategory() Category {
	return Category{Name: NonParticipatingName, MaxSize: Unbounded, Kind: KindNonParticipating}
}

// WithdrawCategory группа выбывших. capacity <= 0 означает без ограничения.
func WithdrawCategory(capacity int) Category {
	if capacity <= 0 {
		capacity = Unbounded
	}
	return Category{Name: WithdrawName, MaxSize: capacity, Kind: KindWithdraw}
}
