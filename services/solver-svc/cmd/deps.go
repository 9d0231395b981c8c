package main

import (
	"context"
	"errors"
	"os"
	"time"

	"lottery/pkg/apperror"
	"lottery/pkg/audit"
	"lottery/pkg/cache"
	"lottery/pkg/database"
	"lottery/pkg/logger"
	"lottery/services/solver-svc/internal/repository"
	"lottery/services/solver-svc/migrations"
)

// errDatabaseDisabled возвращают команды, которым нужна история прогонов
var errDatabaseDisabled = apperror.New(apperror.CodeInvalidArgument,
	"run history is disabled, set database.enabled or LOTTERY_DATABASE_ENABLED=true")

// openRepository подключает историю прогонов. При выключенной базе
// возвращает nil без ошибки.
func openRepository(ctx context.Context) (*repository.PostgresRunRepository, func(), error) {
	if !cfg.Database.Enabled {
		return nil, func() {}, nil
	}

	db, err := database.Open(ctx, &cfg.Database, migrations.FS, migrations.Dir)
	if err != nil {
		return nil, nil, asDatabaseError(err, "failed to open run history")
	}

	logger.Info("Run history connected", "host", cfg.Database.Host, "database", cfg.Database.Database)
	return repository.NewPostgresRunRepository(db), db.Close, nil
}

// openCache поднимает кэш распределений. При выключенном кэше возвращает nil.
func openCache() (*cache.AssignmentCache, func(), error) {
	if !cfg.Cache.Enabled {
		return nil, func() {}, nil
	}

	c, err := cache.New(cache.FromConfig(&cfg.Cache))
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.CodeCacheFailure, "failed to open assignment cache")
	}

	closeFn := func() {
		if err := c.Close(); err != nil {
			logger.Warn("Failed to close cache", "error", err)
		}
	}

	logger.Info("Assignment cache enabled", "driver", cfg.Cache.Driver, "ttl", cfg.Cache.DefaultTTL)
	return cache.NewAssignmentCache(c, cfg.Cache.DefaultTTL), closeFn, nil
}

// openAudit открывает журнал аудита. При выключенном аудите это noop журнал.
func openAudit() (audit.Logger, error) {
	l, err := audit.New(audit.FromConfig(&cfg.Audit))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidArgument, "failed to open audit log")
	}
	return l, nil
}

func closeAudit(l audit.Logger) {
	if err := l.Close(); err != nil {
		logger.Warn("Failed to close audit log", "error", err)
	}
}

// writeAudit пишет запись аудита команды. Ошибка журнала не меняет итог команды.
func writeAudit(ctx context.Context, l audit.Logger, command string, action audit.Action, start time.Time, runErr error, meta map[string]any) {
	host, _ := os.Hostname()

	outcome := audit.OutcomeSuccess
	if runErr != nil {
		outcome = audit.OutcomeFailure
	}

	b := audit.NewEntry().
		Service(cfg.App.Name).
		Command(command).
		Action(action).
		Outcome(outcome).
		Operator(os.Getenv("USER"), host).
		Duration(time.Since(start))

	if runErr != nil {
		b.Error(string(apperror.Code(runErr)), runErr.Error())
	}
	for k, v := range meta {
		b.Meta(k, v)
	}

	if err := l.Log(ctx, b.Build()); err != nil {
		logger.Warn("Failed to write audit entry", "action", action, "error", err)
	}
}

func asDatabaseError(err error, message string) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Wrap(err, apperror.CodeDatabaseFailure, message)
}
