// Package repository хранит историю прогонов лотереи в PostgreSQL.
package repository

import (
	"context"
	"errors"
	"time"
)

// Стандартные ошибки
var (
	ErrRunNotFound = errors.New("run not found")
)

// RunStatus итог прогона
type RunStatus string

const (
	StatusSucceeded RunStatus = "succeeded"
	StatusCached    RunStatus = "cached"
	StatusFailed    RunStatus = "failed"
)

// Run запись о прогоне
type Run struct {
	ID            string
	Seed          int64
	InputHash     string
	Persons       int
	Categories    int
	Placed        int
	Withdrawn     int
	TotalCost     int64
	Augmentations int
	DurationMs    int64
	Status        RunStatus
	ErrorCode     string // пусто для успешных прогонов
	CreatedAt     time.Time
}

// ListOptions опции для списка
type ListOptions struct {
	Limit     int
	Offset    int
	InputHash string // только прогоны по этому входу
}

// RunStatistics сводка по истории
type RunStatistics struct {
	TotalRuns         int
	FailedRuns        int
	CachedRuns        int
	DistinctInputs    int
	AverageDurationMs float64
	AverageWithdrawn  float64
	LastRunAt         *time.Time
}

// RunRepository интерфейс хранилища прогонов
type RunRepository interface {
	Create(ctx context.Context, run *Run) error
	GetByID(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, opts *ListOptions) ([]*Run, int64, error)
	Statistics(ctx context.Context) (*RunStatistics, error)
	Prune(ctx context.Context, keep int) (int64, error)
}
