package loader

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"lottery/pkg/apperror"
	"lottery/pkg/config"
	"lottery/pkg/domain"
	"lottery/pkg/logger"
	"lottery/pkg/telemetry"
)

// Files пути к найденным входным файлам
type Files struct {
	Dancers string
	Classes string
	Board   string // пусто, если файла правления нет
}

// Input входные данные прогона
type Input struct {
	Header     Header
	Persons    []domain.Person
	Categories []domain.Category
	Seed       int64
	Files      Files
}

// Loader находит и читает входные файлы в каталоге
type Loader struct {
	cfg config.InputConfig
	log *slog.Logger
}

// Option опция загрузчика
type Option func(*Loader)

// WithLogger задаёт логгер
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		ld.log = l
	}
}

// New создаёт загрузчик
func New(cfg config.InputConfig, opts ...Option) *Loader {
	l := &Loader{cfg: cfg, log: logger.Log}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load читает группы, правление и танцоров, затем перемешивает танцоров
// по seed. Seed 0 заменяется случайным и возвращается в Input.
func (l *Loader) Load(ctx context.Context) (*Input, error) {
	ctx, span := telemetry.StartSpan(ctx, "loader.Load")
	defer span.End()

	in, err := l.load()
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	nonParticipating := 0
	for _, p := range in.Persons {
		if p.NonParticipating {
			nonParticipating++
		}
	}
	span.SetAttributes(telemetry.InputAttributes(len(in.Persons), len(in.Categories), nonParticipating)...)

	l.log.Info("Input loaded",
		"dancers", len(in.Persons),
		"classes", len(in.Categories),
		"non_participating", nonParticipating,
		"seed", in.Seed,
		"dancers_file", in.Files.Dancers,
	)
	return in, nil
}

func (l *Loader) load() (*Input, error) {
	in := &Input{}

	classesPath, err := FindInputFile(l.cfg.Dir, l.cfg.ClassesFiles)
	if err != nil {
		return nil, err
	}
	in.Files.Classes = classesPath

	categories, err := ReadClassesFile(classesPath)
	if err != nil {
		return nil, err
	}
	in.Categories = categories

	board := Board{}
	boardPath, err := FindInputFile(l.cfg.Dir, l.cfg.BoardFiles)
	switch {
	case err == nil:
		in.Files.Board = boardPath
		if board, err = ReadBoardFile(boardPath); err != nil {
			return nil, err
		}
	case apperror.Is(err, apperror.CodeInputNotFound):
		l.log.Warn("Board file not found, no dancer gets board priority", "dir", l.cfg.Dir)
	default:
		return nil, err
	}

	dancersPath, err := FindInputFile(l.cfg.Dir, l.cfg.DancersFiles)
	if err != nil {
		return nil, err
	}
	in.Files.Dancers = dancersPath

	dancers, err := ReadDancersFile(dancersPath, categories, board)
	if err != nil {
		return nil, err
	}
	in.Header = dancers.Header

	in.Seed = ResolveSeed(l.cfg.Seed)
	in.Persons = Shuffle(dancers.Persons, in.Seed)
	return in, nil
}

// ResolveSeed возвращает seed как есть или случайный ненулевой при 0
func ResolveSeed(seed int64) int64 {
	for seed == 0 {
		seed = rand.Int64()
	}
	return seed
}

// Shuffle возвращает перемешанную копию. Одинаковый seed даёт одинаковый порядок.
// Равенства стоимости решаются порядком участников.
func Shuffle(persons []domain.Person, seed int64) []domain.Person {
	out := append([]domain.Person(nil), persons...)
	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	r.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
