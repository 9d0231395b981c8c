// Package service проводит прогон лотереи: кэш, кодирование, решатель,
// декодирование, статистика, история и аудит.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"lottery/pkg/apperror"
	"lottery/pkg/audit"
	"lottery/pkg/cache"
	"lottery/pkg/domain"
	"lottery/pkg/logger"
	"lottery/pkg/metrics"
	"lottery/pkg/telemetry"
	"lottery/services/solver-svc/internal/algorithms"
	"lottery/services/solver-svc/internal/costmodel"
	"lottery/services/solver-svc/internal/decisionlog"
	"lottery/services/solver-svc/internal/encoding"
	"lottery/services/solver-svc/internal/loader"
	"lottery/services/solver-svc/internal/network"
	"lottery/services/solver-svc/internal/repository"
)

// ServiceName имя сервиса в аудите
const ServiceName = "solver-svc"

// Outcome результат прогона
type Outcome struct {
	RunID      string
	InputHash  string
	Seed       int64
	Assignment domain.Assignment
	Statistics *domain.Statistics

	TotalCost     int64
	Augmentations int
	Passes        int
	Nodes         int
	Duration      time.Duration
	Cached        bool

	// DecisionLog путь к журналу решений, пусто если он не писался
	DecisionLog string

	// Horizon сколько участников нижнего уровня гарантированно не перевешивают
	// один шаг выбора участника выше. Меньше Population, когда коэффициент
	// ограничен потолком стоимости. 0 для распределения из кэша.
	Horizon    int
	Population int

	// Unplaced участники без группы и без места среди выбывших: предел
	// выбывших исчерпан
	Unplaced []domain.Person
}

// Settings параметры прогона
type Settings struct {
	Policy           costmodel.Policy
	Verify           bool
	ProgressInterval time.Duration
	MaxUnenroll      int
	DecisionLogPath  string
	DumpPath         string
}

// LotteryService проводит прогоны лотереи
type LotteryService struct {
	settings Settings
	command  string

	cache    *cache.AssignmentCache
	runs     repository.RunRepository
	audit    audit.Logger
	metrics  *metrics.Metrics
	progress algorithms.ProgressFunc
	log      *slog.Logger
}

// Option опция сервиса
type Option func(*LotteryService)

// WithCache включает кэш решённых распределений
func WithCache(c *cache.AssignmentCache) Option {
	return func(s *LotteryService) { s.cache = c }
}

// WithRepository включает запись истории прогонов
func WithRepository(r repository.RunRepository) Option {
	return func(s *LotteryService) { s.runs = r }
}

// WithAudit задаёт аудит лог
func WithAudit(l audit.Logger) Option {
	return func(s *LotteryService) {
		if l != nil {
			s.audit = l
		}
	}
}

// WithMetrics задаёт метрики
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *LotteryService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithProgress задаёт обработчик прогресса решателя
func WithProgress(fn algorithms.ProgressFunc) Option {
	return func(s *LotteryService) { s.progress = fn }
}

// WithLogger задаёт логгер
func WithLogger(l *slog.Logger) Option {
	return func(s *LotteryService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCommand имя CLI команды для аудита
func WithCommand(cmd string) Option {
	return func(s *LotteryService) { s.command = cmd }
}

// NewLotteryService создаёт сервис
func NewLotteryService(settings Settings, opts ...Option) *LotteryService {
	s := &LotteryService{
		settings: settings,
		command:  "solve",
		audit:    &audit.NoopLogger{},
		log:      logger.WithComponent("lottery"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New("lottery", "solver")
	}
	return s
}

// Metrics метрики сервиса
func (s *LotteryService) Metrics() *metrics.Metrics {
	return s.metrics
}

// Run проводит прогон. Ошибки ядра возвращаются как *network.FatalError,
// снимок сети при этом записывается в DumpPath.
func (s *LotteryService) Run(ctx context.Context, in *loader.Input) (*Outcome, error) {
	if in == nil {
		return nil, apperror.New(apperror.CodeNilInput, "input is nil")
	}

	runID := uuid.NewString()
	ctx, span := telemetry.StartSpan(ctx, "LotteryService.Run",
		telemetry.WithAttributes(
			attribute.String("lottery.run_id", runID),
			attribute.Int64("lottery.seed", in.Seed),
		),
	)
	defer span.End()

	log := s.log.With("run_id", runID)
	start := time.Now()

	out := &Outcome{
		RunID:     runID,
		Seed:      in.Seed,
		InputHash: s.inputHash(in),
	}

	err := s.run(ctx, in, out, log)
	out.Duration = time.Since(start)

	if err != nil {
		telemetry.SetError(ctx, err)
		err = s.fail(ctx, in, out, err, log)
		return nil, err
	}

	if out.Unplaced = out.Assignment.Missing(in.Persons); len(out.Unplaced) > 0 {
		log.Warn("Unenroll limit reached, members left without placement",
			"max_unenroll", s.settings.MaxUnenroll,
			"unplaced", personIDs(out.Unplaced),
		)
	}

	s.metrics.RecordRun(true, out.Cached)
	s.metrics.RecordStatistics(len(in.Persons), out.Statistics)
	telemetry.SetAttributes(ctx, telemetry.ResultAttributes(out.Assignment.Placed(), out.Statistics.Withdrawn)...)

	status, outcome := repository.StatusSucceeded, audit.OutcomeSuccess
	if out.Cached {
		status, outcome = repository.StatusCached, audit.OutcomeCached
	}
	s.record(ctx, in, out, status, "", log)
	s.auditRun(ctx, out, outcome, nil, log)

	log.Info("Lottery run finished",
		"cached", out.Cached,
		"placed", out.Assignment.Placed(),
		"withdrawn", out.Statistics.Withdrawn,
		"unplaced", len(out.Unplaced),
		"total_cost", out.TotalCost,
		"augmentations", out.Augmentations,
		"duration", out.Duration,
	)
	return out, nil
}

func (s *LotteryService) run(ctx context.Context, in *loader.Input, out *Outcome, log *slog.Logger) error {
	if hit, err := s.fromCache(ctx, in, out, log); err != nil || hit {
		return err
	}

	if err := s.solve(ctx, in, out, log); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, out.InputHash, out.Assignment, out.TotalCost, out.Augmentations); err != nil {
			log.Warn("Failed to cache assignment", "error", err)
		}
	}
	return nil
}

// fromCache восстанавливает распределение из кэша. Повреждённая запись удаляется.
func (s *LotteryService) fromCache(ctx context.Context, in *loader.Input, out *Outcome, log *slog.Logger) (bool, error) {
	if s.cache == nil {
		return false, nil
	}

	cached, found, err := s.cache.Get(ctx, out.InputHash)
	if err != nil {
		log.Warn("Assignment cache unavailable", "error", err)
		return false, nil
	}
	s.metrics.RecordCache(found)
	if !found {
		return false, nil
	}

	a, err := cached.Restore(in.Persons, in.Categories, s.syntheticCategories()...)
	if err != nil {
		log.Warn("Cached assignment does not match input, solving again", "error", err)
		if err := s.cache.Invalidate(ctx, out.InputHash); err != nil {
			log.Warn("Failed to invalidate cached assignment", "error", err)
		}
		return false, nil
	}

	telemetry.AddEvent(ctx, "cache_hit", attribute.String("lottery.input_hash", out.InputHash))
	out.Assignment = a
	out.Statistics = domain.CalculateStatistics(a)
	out.TotalCost = cached.TotalCost
	out.Augmentations = cached.Augmentations
	out.Cached = true
	return true, nil
}

func (s *LotteryService) solve(ctx context.Context, in *loader.Input, out *Outcome, log *slog.Logger) error {
	phase := time.Now()
	census := domain.NewCensus(in.Persons)
	ceiling := network.CostCeiling(encoding.NodeCount(len(in.Persons), len(in.Categories)))
	model, err := costmodel.New(s.settings.Policy, census, ceiling)
	if err != nil {
		return err
	}

	out.Horizon, out.Population = model.Horizon(), census.Total()
	if !model.FullDominance() {
		log.Warn("Cost ceiling caps the tier ratio, tier priority holds only up to the horizon",
			"horizon", out.Horizon,
			"population", out.Population,
			"ratio", model.Ratio(),
		)
	}

	enc, err := s.encode(ctx, in, model)
	if err != nil {
		return err
	}
	s.metrics.ObservePhase(metrics.PhaseEncode, time.Since(phase))
	out.Nodes = enc.Net.NumNodes()

	var decisions *decisionlog.Log
	opts := []algorithms.Option{
		algorithms.WithVerify(s.settings.Verify),
		algorithms.WithExpectedFlow(enc.ExpectedFlow),
		algorithms.WithLogger(log),
	}
	if s.settings.DecisionLogPath != "" {
		decisions = decisionlog.New(enc.Layout)
		opts = append(opts, algorithms.WithRecorder(decisions))
	}
	if s.progress != nil {
		opts = append(opts, algorithms.WithProgress(s.progress, s.settings.ProgressInterval))
	}

	phase = time.Now()
	solveCtx, span := telemetry.StartSpan(ctx, "algorithms.Solve")
	s.metrics.Footprint.Begin()
	res, err := algorithms.Solve(solveCtx, enc.Net, opts...)
	s.metrics.Footprint.End()
	span.End()
	s.metrics.ObservePhase(metrics.PhaseSolve, time.Since(phase))

	// журнал нужен и при фатальной ошибке: в нём видно шаг, на котором сломалось
	if decisions != nil {
		if werr := s.writeDecisionLog(decisions); werr != nil {
			log.Warn("Failed to write decision log", "path", s.settings.DecisionLogPath, "error", werr)
		} else {
			out.DecisionLog = s.settings.DecisionLogPath
		}
	}
	if err != nil {
		return err
	}

	out.TotalCost = res.TotalCost
	out.Augmentations = res.Augmentations
	out.Passes = res.Passes
	telemetry.SetAttributes(ctx, telemetry.SolverAttributes(res.Augmentations, res.Passes, res.TotalCost)...)
	s.metrics.RecordSolve(out.Nodes, res.Augmentations, res.Passes, res.TotalCost)

	phase = time.Now()
	_, span = telemetry.StartSpan(ctx, "encoding.Decode")
	a, err := encoding.Decode(enc, in.Persons, in.Categories)
	span.End()
	if err != nil {
		return err
	}
	s.metrics.ObservePhase(metrics.PhaseDecode, time.Since(phase))

	out.Assignment = a
	out.Statistics = domain.CalculateStatistics(a)

	log.Debug("Lottery solved",
		"nodes", out.Nodes,
		"arcs", enc.Net.Arcs(),
		"augmentations", res.Augmentations,
		"passes", res.Passes,
		"solve_duration", res.Duration,
	)
	return nil
}

func (s *LotteryService) encode(ctx context.Context, in *loader.Input, model *costmodel.Model) (*encoding.Encoded, error) {
	ctx, span := telemetry.StartSpan(ctx, "encoding.Encode")
	defer span.End()

	enc, err := encoding.Encode(in.Persons, in.Categories, model, encoding.WithWithdrawCap(s.settings.MaxUnenroll))
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}
	telemetry.SetAttributes(ctx, telemetry.NetworkAttributes(enc.Net.NumNodes(), enc.Net.Arcs(), enc.ExpectedFlow)...)
	return enc, nil
}

// fail записывает неудачный прогон. Для ошибок ядра сохраняется снимок сети.
func (s *LotteryService) fail(ctx context.Context, in *loader.Input, out *Outcome, err error, log *slog.Logger) error {
	s.metrics.RecordRun(false, false)

	var fatal *network.FatalError
	if errors.As(err, &fatal) {
		s.metrics.RecordFatal(string(fatal.Code()))

		if path, derr := s.dump(fatal); derr != nil {
			log.Error("Failed to write diagnostic dump", "path", s.settings.DumpPath, "error", derr)
		} else if path != "" {
			fatal.WithDetails("dump", path)
			log.Error("Solver core failure, diagnostic dump written", "code", fatal.Code(), "dump", path)
		}
	}

	code := string(apperror.Code(err))
	s.record(ctx, in, out, repository.StatusFailed, code, log)
	s.auditRun(ctx, out, audit.OutcomeFailure, err, log)

	log.Error("Lottery run failed", "code", code, "error", err)
	return err
}

// dump пишет снимок сети. Пустой путь или отсутствие снимка ничего не пишут.
func (s *LotteryService) dump(fatal *network.FatalError) (string, error) {
	path := s.settings.DumpPath
	if path == "" || fatal.Snapshot == nil {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := fatal.Snapshot.WriteTo(f); err != nil {
		return "", err
	}
	return path, f.Sync()
}

func (s *LotteryService) writeDecisionLog(l *decisionlog.Log) error {
	if err := os.MkdirAll(filepath.Dir(s.settings.DecisionLogPath), 0o755); err != nil {
		return err
	}
	return l.WriteFile(s.settings.DecisionLogPath)
}

// record сохраняет прогон в истории. Ошибка хранилища не отменяет прогон.
func (s *LotteryService) record(ctx context.Context, in *loader.Input, out *Outcome, status repository.RunStatus, code string, log *slog.Logger) {
	if s.runs == nil {
		return
	}

	run := &repository.Run{
		ID:            out.RunID,
		Seed:          out.Seed,
		InputHash:     out.InputHash,
		Persons:       len(in.Persons),
		Categories:    len(in.Categories),
		TotalCost:     out.TotalCost,
		Augmentations: out.Augmentations,
		DurationMs:    out.Duration.Milliseconds(),
		Status:        status,
		ErrorCode:     code,
	}
	if out.Assignment != nil {
		run.Placed = out.Assignment.Placed()
		run.Withdrawn = len(out.Assignment.Withdrawn())
	}

	if err := s.runs.Create(ctx, run); err != nil {
		log.Warn("Failed to store run", "error", err)
	}
}

func (s *LotteryService) auditRun(ctx context.Context, out *Outcome, outcome audit.Outcome, runErr error, log *slog.Logger) {
	host, _ := os.Hostname()

	b := audit.NewEntry().
		Service(ServiceName).
		Command(s.command).
		Action(audit.ActionSolve).
		Outcome(outcome).
		Operator(os.Getenv("USER"), host).
		Run(out.RunID, out.InputHash, out.Seed).
		Duration(out.Duration)

	if runErr != nil {
		b.Error(string(apperror.Code(runErr)), runErr.Error())
	}
	if out.Assignment != nil {
		b.Meta("placed", out.Assignment.Placed()).
			Meta("withdrawn", len(out.Assignment.Withdrawn())).
			Meta("total_cost", out.TotalCost)
	}
	if len(out.Unplaced) > 0 {
		b.Meta("unplaced", personIDs(out.Unplaced))
	}
	if out.Horizon > 0 {
		b.Meta("horizon", out.Horizon).Meta("population", out.Population)
	}

	if err := s.audit.Log(ctx, b.Build()); err != nil {
		log.Warn("Failed to write audit entry", "error", err)
	}
}

// inputHash ключ входа: участники в порядке после перемешивания, группы,
// политика стоимости и ограничение выбывших.
func (s *LotteryService) inputHash(in *loader.Input) string {
	return cache.InputHash(in.Persons, in.Categories,
		fmt.Sprintf("%+v", s.settings.Policy),
		"max_unenroll="+strconv.Itoa(s.settings.MaxUnenroll),
	)
}

func personIDs(persons []domain.Person) []string {
	ids := make([]string, len(persons))
	for i, p := range persons {
		ids[i] = p.ID
	}
	return ids
}

func (s *LotteryService) syntheticCategories() []domain.Category {
	return []domain.Category{
		domain.NonParticipatingCategory(),
		domain.WithdrawCategory(s.settings.MaxUnenroll),
	}
}
