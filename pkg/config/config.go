// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config - главная структура конфигурации
type Config struct {
	App      AppConfig      `koanf:"app"`
	Log      LogConfig      `koanf:"log"`
	Input    InputConfig    `koanf:"input"`
	Solver   SolverConfig   `koanf:"solver"`
	Policy   PolicyConfig   `koanf:"policy"`
	Export   ExportConfig   `koanf:"export"`
	Cache    CacheConfig    `koanf:"cache"`
	Database DatabaseConfig `koanf:"database"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Tracing  TracingConfig  `koanf:"tracing"`
	Audit    AuditConfig    `koanf:"audit"`
}

// AppConfig - общие настройки приложения
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// LogConfig - настройки логирования
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file, discard
	FilePath   string `koanf:"file_path"`   // путь к файлу логов
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"` // количество бэкапов
	MaxAge     int    `koanf:"max_age"`     // дней
	Compress   bool   `koanf:"compress"`
}

// InputConfig - где искать входные файлы лотереи
type InputConfig struct {
	Dir          string   `koanf:"dir"`
	DancersFiles []string `koanf:"dancers_files"` // кандидаты имени файла с танцорами
	ClassesFiles []string `koanf:"classes_files"`
	BoardFiles   []string `koanf:"board_files"`
	Seed         int64    `koanf:"seed"` // 0 - случайный seed, записывается в прогон
}

// SolverConfig - настройки MCMF решателя
type SolverConfig struct {
	Verify           bool          `koanf:"verify"`            // проверка сохранения потока после каждого шага
	ProgressInterval time.Duration `koanf:"progress_interval"` // не чаще, чем раз в интервал
	MaxUnenroll      int           `koanf:"max_unenroll"`      // 0 - без ограничения
	DecisionLogPath  string        `koanf:"decision_log_path"` // пусто - журнал решений не пишется
	DumpPath         string        `koanf:"dump_path"`         // бинарный снимок при фатальной ошибке
}

// PolicyConfig - параметры модели стоимости.
// Порядок уровней приоритета фиксирован, здесь задаются только числа.
type PolicyConfig struct {
	FlatCost        int64    `koanf:"flat_cost"`
	BaseIncrement   int64    `koanf:"base_increment"`
	Ratio           int64    `koanf:"ratio"`
	Padding         int64    `koanf:"padding"`
	AdviceDiscount  int64    `koanf:"advice_discount"`
	WithdrawPenalty int64    `koanf:"withdraw_penalty"`
	StandardCost    int64    `koanf:"standard_cost"`
	OverflowAnchor  string   `koanf:"overflow_anchor"`
	SourceStep      int64    `koanf:"source_step"`
	DualEnrollment  []string `koanf:"dual_enrollment"`
}

// ExportConfig - настройки выгрузки результата
type ExportConfig struct {
	Dir     string   `koanf:"dir"`
	Formats []string `koanf:"formats"` // csv, txt, xlsx, pdf, json
	Title   string   `koanf:"title"`
}

// DatabaseConfig - настройки базы данных истории прогонов
type DatabaseConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Driver          string        `koanf:"driver"` // postgres
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Database        string        `koanf:"database"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// DSN возвращает строку подключения
func (d DatabaseConfig) DSN() string {
	switch strings.ToLower(d.Driver) {
	case "postgres", "postgresql":
		return fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			d.Username, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
		)
	default:
		return ""
	}
}

// CacheConfig - настройки кэширования решённых назначений
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // для in-memory
}

// Address возвращает адрес кэша
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsConfig - настройки Prometheus метрик.
// Для пакетного запуска метрики пишутся в textfile, Port > 0 поднимает /metrics.
type MetricsConfig struct {
	Enabled      bool   `koanf:"enabled"`
	Port         int    `koanf:"port"`
	TextfilePath string `koanf:"textfile_path"`
	Namespace    string `koanf:"namespace"`
	Subsystem    string `koanf:"subsystem"`
}

// TracingConfig - настройки OpenTelemetry
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// AuditConfig конфигурация аудит лога
type AuditConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Backend     string        `koanf:"backend"` // stdout, file, noop
	FilePath    string        `koanf:"file_path"`
	BufferSize  int           `koanf:"buffer_size"`
	FlushPeriod time.Duration `koanf:"flush_period"`
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	if c.Solver.MaxUnenroll < 0 {
		errs = append(errs, fmt.Sprintf("solver.max_unenroll must be non-negative, got %d", c.Solver.MaxUnenroll))
	}

	if c.Solver.ProgressInterval < 0 {
		errs = append(errs, "solver.progress_interval must be non-negative")
	}

	// Модель стоимости проверяется целиком в costmodel, здесь только грубые ошибки
	if c.Policy.Ratio < 2 {
		errs = append(errs, fmt.Sprintf("policy.ratio must be at least 2, got %d", c.Policy.Ratio))
	}
	if c.Policy.BaseIncrement <= 0 {
		errs = append(errs, "policy.base_increment must be positive")
	}

	validFormats := map[string]bool{"csv": true, "txt": true, "xlsx": true, "pdf": true, "json": true}
	for _, f := range c.Export.Formats {
		if !validFormats[strings.ToLower(f)] {
			errs = append(errs, fmt.Sprintf("export.formats: unknown format %s", f))
		}
	}

	if c.Cache.Enabled {
		validDrivers := map[string]bool{"memory": true, "redis": true}
		if !validDrivers[c.Cache.Driver] {
			errs = append(errs, fmt.Sprintf("cache.driver must be one of: memory, redis, got %s", c.Cache.Driver))
		}
	}

	if c.Database.Enabled && c.Database.DSN() == "" {
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported", c.Database.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment проверяет режим разработки
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction проверяет продакшн режим
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
