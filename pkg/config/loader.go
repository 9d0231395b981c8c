package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "LOTTERY_"
	configEnvVar = "CONFIG_PATH"
)

// ErrConfigNotFound возвращается, когда ни один из путей поиска не содержит файл
var ErrConfigNotFound = errors.New("config file not found")

// Loader загружает конфигурацию из разных источников
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	explicit    string
	envPrefix   string
}

// NewLoader создаёт новый загрузчик конфигурации
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"lottery.yaml",
			"config.yaml",
			"config/config.yaml",
			"/etc/lottery/config.yaml",
		},
		envPrefix: envPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoaderOption - опция для конфигурации загрузчика
type LoaderOption func(*Loader)

// WithConfigPaths устанавливает пути поиска конфигурации
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.configPaths = paths
	}
}

// WithConfigFile задаёт явный путь к файлу. В отличие от путей поиска,
// отсутствие такого файла считается ошибкой.
func WithConfigFile(path string) LoaderOption {
	return func(l *Loader) {
		l.explicit = path
	}
}

// WithEnvPrefix устанавливает префикс переменных окружения
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// Load загружает конфигурацию с приоритетом:
// 1. Defaults (самый низкий)
// 2. Config file (yaml)
// 3. Environment variables (самый высокий)
func (l *Loader) Load() (*Config, error) {
	// 1. Загружаем значения по умолчанию
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Загружаем из файла конфигурации.
	// Файл из путей поиска не обязателен, явно указанный - обязателен.
	if err := l.loadConfigFile(); err != nil && !errors.Is(err, ErrConfigNotFound) {
		return nil, err
	}

	// 3. Загружаем из переменных окружения (перезаписывают файл)
	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	// 4. Распаковываем в структуру
	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Валидируем
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDefaults загружает значения по умолчанию
func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		// App
		"app.name":        "lottery",
		"app.version":     "1.0.0",
		"app.environment": "development",
		"app.debug":       false,

		// Log. Stdout занят таблицами CLI, поэтому логи идут в stderr
		"log.level":       "info",
		"log.format":      "text",
		"log.output":      "stderr",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		// Input
		"input.dir":           "input",
		"input.dancers_files": []string{"dansers.csv", "dancers.csv", "Dansers.csv", "Dancers.csv"},
		"input.classes_files": []string{"danceclasses.csv"},
		"input.board_files":   []string{"Board.txt"},
		"input.seed":          0,

		// Solver
		"solver.verify":            false,
		"solver.progress_interval": 200 * time.Millisecond,
		"solver.max_unenroll":      0,
		"solver.decision_log_path": "",
		"solver.dump_path":         "output/dump.bin",

		// Policy
		"policy.flat_cost":        0,
		"policy.base_increment":   4,
		"policy.ratio":            4,
		"policy.padding":          4,
		"policy.advice_discount":  3,
		"policy.withdraw_penalty": 1,
		"policy.standard_cost":    1,
		"policy.overflow_anchor":  "HalfYear",
		"policy.source_step":      12,
		"policy.dual_enrollment":  []string{"Board", "Damn"},

		// Export
		"export.dir":     "output",
		"export.formats": []string{"csv"},
		"export.title":   "Studance lottery",

		// Database
		"database.enabled":            false,
		"database.driver":             "postgres",
		"database.host":               "localhost",
		"database.port":               5432,
		"database.database":           "lottery",
		"database.username":           "postgres",
		"database.password":           "",
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     5,
		"database.max_idle_conns":     1,
		"database.conn_max_lifetime":  5 * time.Minute,
		"database.conn_max_idle_time": 5 * time.Minute,
		"database.auto_migrate":       true,

		// Cache
		"cache.enabled":     false,
		"cache.driver":      "memory",
		"cache.host":        "localhost",
		"cache.port":        6379,
		"cache.db":          0,
		"cache.default_ttl": 24 * time.Hour,
		"cache.max_entries": 64,

		// Metrics
		"metrics.enabled":       false,
		"metrics.port":          0,
		"metrics.textfile_path": "",
		"metrics.namespace":     "lottery",
		"metrics.subsystem":     "solver",

		// Tracing
		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": "lottery",
		"tracing.sample_rate":  1.0,

		// Audit
		"audit.enabled":      false,
		"audit.backend":      "file",
		"audit.file_path":    "output/audit.log",
		"audit.buffer_size":  16,
		"audit.flush_period": time.Second,
	}

	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

// loadConfigFile загружает конфигурацию из файла
func (l *Loader) loadConfigFile() error {
	if l.explicit != "" {
		if _, err := os.Stat(l.explicit); err != nil {
			return fmt.Errorf("config file %s: %w", l.explicit, err)
		}
		return l.k.Load(file.Provider(l.explicit), yaml.Parser())
	}

	if configPath := os.Getenv(configEnvVar); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return l.k.Load(file.Provider(configPath), yaml.Parser())
		}
	}

	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			return l.k.Load(file.Provider(absPath), yaml.Parser())
		}
	}

	return fmt.Errorf("%w in paths: %v", ErrConfigNotFound, l.configPaths)
}

// loadEnv загружает конфигурацию из переменных окружения
// Использует умную трансформацию ключей для полей с подчёркиванием
func (l *Loader) loadEnv() error {
	return l.k.Load(env.ProviderWithValue(l.envPrefix, ".", func(envKey string, value string) (string, interface{}) {
		// Убираем префикс и приводим к нижнему регистру
		key := strings.ToLower(strings.TrimPrefix(envKey, l.envPrefix))

		// Маппинг для полей с подчёркиванием в именах
		if mappedKey, ok := envKeyMappings[key]; ok {
			key = mappedKey
		} else {
			// По умолчанию первое подчёркивание отделяет секцию от поля
			key = strings.Replace(key, "_", ".", 1)
		}

		// Для slice-полей разбиваем по запятой
		if isSliceField(key) {
			return key, splitAndTrim(value)
		}

		return key, value
	}), nil)
}

// envKeyMappings - короткие алиасы переменных окружения.
// Остальные ключи разбираются по первому подчёркиванию: LOTTERY_SOLVER_MAX_UNENROLL -> solver.max_unenroll
var envKeyMappings = map[string]string{
	"seed":         "input.seed",
	"max_unenroll": "solver.max_unenroll",
	"verify":       "solver.verify",
	"formats":      "export.formats",
}

// sliceFields - поля, которые должны парситься как слайсы
var sliceFields = map[string]bool{
	"input.dancers_files":    true,
	"input.classes_files":    true,
	"input.board_files":      true,
	"export.formats":         true,
	"policy.dual_enrollment": true,
}

func isSliceField(key string) bool {
	return sliceFields[key]
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// MustLoad загружает конфигурацию или паникует
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Load - удобная функция для загрузки с дефолтными настройками
func Load() (*Config, error) {
	return NewLoader().Load()
}
