package database

import (
	"context"
	"database/sql"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"lottery/pkg/apperror"
	"lottery/pkg/config"
	"lottery/pkg/logger"
)

// Migrator применяет встроенные SQL миграции через goose
type Migrator struct {
	pool       *pgxpool.Pool
	migrations fs.FS
	dir        string
}

// NewMigrator создаёт новый мигратор
func NewMigrator(pool *pgxpool.Pool, migrations fs.FS, dir string) *Migrator {
	return &Migrator{
		pool:       pool,
		migrations: migrations,
		dir:        dir,
	}
}

// Up применяет все миграции
func (m *Migrator) Up(ctx context.Context) error {
	return m.run(ctx, func(db *sql.DB) error {
		return goose.UpContext(ctx, db, m.dir)
	}, "failed to run migrations")
}

// Down откатывает последнюю миграцию
func (m *Migrator) Down(ctx context.Context) error {
	return m.run(ctx, func(db *sql.DB) error {
		return goose.DownContext(ctx, db, m.dir)
	}, "failed to rollback migration")
}

// Version возвращает текущую версию схемы
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	var version int64
	err := m.run(ctx, func(db *sql.DB) error {
		v, err := goose.GetDBVersionContext(ctx, db)
		version = v
		return err
	}, "failed to read schema version")
	return version, err
}

func (m *Migrator) run(ctx context.Context, fn func(db *sql.DB) error, msg string) error {
	db := stdlib.OpenDBFromPool(m.pool)
	defer db.Close()

	goose.SetBaseFS(m.migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("postgres"); err != nil {
		return apperror.Wrap(err, apperror.CodeDatabaseFailure, "failed to set dialect")
	}

	if err := fn(db); err != nil {
		return apperror.Wrap(err, apperror.CodeDatabaseFailure, msg)
	}
	return nil
}

// RunMigrations запускает миграции если включено в конфигурации
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, cfg *config.DatabaseConfig, migrations fs.FS, dir string) error {
	if !cfg.AutoMigrate {
		logger.Log.Debug("Auto-migration is disabled")
		return nil
	}

	if err := NewMigrator(pool, migrations, dir).Up(ctx); err != nil {
		return err
	}

	logger.Log.Info("Migrations applied", "dir", dir)
	return nil
}

// Open подключается к базе и применяет миграции
func Open(ctx context.Context, cfg *config.DatabaseConfig, migrations fs.FS, dir string) (*PostgresDB, error) {
	db, err := NewPostgresDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db.Pool(), cfg, migrations, dir); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
