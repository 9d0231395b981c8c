package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"lottery/pkg/database"
	"lottery/pkg/telemetry"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// PostgresRunRepository PostgreSQL реализация
type PostgresRunRepository struct {
	db database.DB
}

// NewPostgresRunRepository создаёт новый репозиторий
func NewPostgresRunRepository(db database.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

// Create сохраняет прогон. Пустой ID заполняется новым UUID.
func (r *PostgresRunRepository) Create(ctx context.Context, run *Run) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.Create")
	defer span.End()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	query := `
		INSERT INTO lottery_runs (
			id, seed, input_hash, persons, categories, placed, withdrawn,
			total_cost, augmentations, duration_ms, status, error_code
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		run.ID,
		run.Seed,
		run.InputHash,
		run.Persons,
		run.Categories,
		run.Placed,
		run.Withdrawn,
		run.TotalCost,
		run.Augmentations,
		run.DurationMs,
		string(run.Status),
		run.ErrorCode,
	).Scan(&run.CreatedAt)

	if err != nil {
		telemetry.SetError(ctx, err)
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// GetByID возвращает прогон по идентификатору
func (r *PostgresRunRepository) GetByID(ctx context.Context, id string) (*Run, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.GetByID")
	defer span.End()

	query := `
		SELECT
			id, seed, input_hash, persons, categories, placed, withdrawn,
			total_cost, augmentations, duration_ms, status, error_code, created_at
		FROM lottery_runs
		WHERE id = $1
	`

	run, err := scanRun(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// List возвращает последние прогоны, новые первыми, и общее количество
func (r *PostgresRunRepository) List(ctx context.Context, opts *ListOptions) ([]*Run, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.List")
	defer span.End()

	if opts == nil {
		opts = &ListOptions{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	where := "TRUE"
	var args []any
	if opts.InputHash != "" {
		where = "input_hash = $1"
		args = append(args, opts.InputHash)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM lottery_runs WHERE %s`, where)
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count runs: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT
			id, seed, input_hash, persons, categories, placed, withdrawn,
			total_cost, augmentations, duration_ms, status, error_code, created_at
		FROM lottery_runs
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)

	args = append(args, limit, opts.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	return runs, total, nil
}

// Statistics сводка по всем прогонам
func (r *PostgresRunRepository) Statistics(ctx context.Context) (*RunStatistics, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.Statistics")
	defer span.End()

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE status = 'cached'),
			COUNT(DISTINCT input_hash),
			COALESCE(AVG(duration_ms), 0)::float8,
			COALESCE(AVG(withdrawn) FILTER (WHERE status <> 'failed'), 0)::float8,
			MAX(created_at)
		FROM lottery_runs
	`

	stats := &RunStatistics{}
	var lastRun pgtype.Timestamptz
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.TotalRuns,
		&stats.FailedRuns,
		&stats.CachedRuns,
		&stats.DistinctInputs,
		&stats.AverageDurationMs,
		&stats.AverageWithdrawn,
		&lastRun,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get run statistics: %w", err)
	}

	if lastRun.Valid {
		t := lastRun.Time
		stats.LastRunAt = &t
	}

	return stats, nil
}

// Prune оставляет keep последних прогонов и удаляет остальные.
// Таблица блокируется на запись, чтобы параллельный прогон не попал между
// выбором и удалением.
func (r *PostgresRunRepository) Prune(ctx context.Context, keep int) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.Prune")
	defer span.End()

	if keep < 0 {
		keep = 0
	}

	deleted, err := database.WithTransactionResult(ctx, r.db, func(tx pgx.Tx) (int64, error) {
		if _, err := tx.Exec(ctx, `LOCK TABLE lottery_runs IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return 0, err
		}

		tag, err := tx.Exec(ctx, `
			DELETE FROM lottery_runs
			WHERE id IN (
				SELECT id FROM lottery_runs
				ORDER BY created_at DESC
				OFFSET $1
			)
		`, keep)
		if err != nil {
			return 0, err
		}
		return tag.RowsAffected(), nil
	})
	if err != nil {
		telemetry.SetError(ctx, err)
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}

	return deleted, nil
}

func scanRun(row pgx.Row) (*Run, error) {
	run := &Run{}
	var status string

	err := row.Scan(
		&run.ID,
		&run.Seed,
		&run.InputHash,
		&run.Persons,
		&run.Categories,
		&run.Placed,
		&run.Withdrawn,
		&run.TotalCost,
		&run.Augmentations,
		&run.DurationMs,
		&status,
		&run.ErrorCode,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	return run, nil
}
